package bot

// Event is one inbound update: a text message or a button press
type Event struct {
	UserID    int64
	HasUser   bool // false for updates without a sender, which the gate always rejects
	ChatID    int64
	MessageID int
	Text      string

	// set for button presses
	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the event is a button press
func (e Event) IsCallback() bool {
	return e.CallbackID != ""
}

// ActionKind is the outbound operation a transport performs
type ActionKind int

const (
	ActionSend   ActionKind = iota // new message
	ActionEdit                     // replace the text and buttons of MessageID
	ActionAnswer                   // acknowledge a button press, optionally as an alert
	ActionDelete                   // remove MessageID
)

// Button is an inline button; Data is an encoded Callback
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of inline buttons
type Keyboard [][]Button

// Action is one rendered output
type Action struct {
	Kind       ActionKind
	ChatID     int64
	MessageID  int
	CallbackID string
	Text       string
	Keyboard   Keyboard
	Alert      bool
	ReplyMenu  bool // attach the persistent reply keyboard instead of inline buttons
}

// Response lists actions in the order they must be performed
type Response struct {
	Actions []Action
}

func (r *Response) add(a Action) {
	r.Actions = append(r.Actions, a)
}
