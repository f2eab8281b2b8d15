package conversation

import (
	"strings"

	"github.com/ksred/order-bot/internal/types"
)

// State is the active step of a user's conversation. The zero value is StateIdle.
type State string

const (
	StateIdle State = ""

	// order creation wizard
	StateCollectingName          State = "collecting_name"
	StateCollectingPlatform      State = "collecting_platform"
	StateCollectingLink          State = "collecting_link"
	StateCollectingPaymentStatus State = "collecting_payment_status"
	StateCollectingComment       State = "collecting_comment"
	StateConfirming              State = "confirming"
	StateEditingDraftField       State = "editing_draft_field"

	// existing order edit
	StateSelectingFieldToEdit State = "selecting_field_to_edit"
	StateAwaitingNewValue     State = "awaiting_new_value"

	// platform management
	StateAwaitingPlatformName State = "awaiting_platform_name"
)

// InWizard reports whether s belongs to the order creation wizard
func (s State) InWizard() bool {
	switch s {
	case StateCollectingName, StateCollectingPlatform, StateCollectingLink,
		StateCollectingPaymentStatus, StateCollectingComment, StateConfirming, StateEditingDraftField:
		return true
	}
	return false
}

// Draft is an order being collected by the wizard. Nothing in it is persisted until
// the user saves from the review screen.
type Draft struct {
	Name          string  `json:"name"`
	PlatformID    uint    `json:"platform_id"`
	PlatformName  string  `json:"platform_name"`
	Link          *string `json:"link"`
	PaymentStatus string  `json:"payment_status"`
	Comment       *string `json:"comment"`

	// EditingField is set only while the review screen revisits one field
	EditingField types.OrderField `json:"editing_field,omitempty"`
}

// Order converts the draft into the entity handed to the store
func (d Draft) Order() types.Order {
	return types.Order{
		Name:          d.Name,
		PlatformID:    d.PlatformID,
		Link:          d.Link,
		PaymentStatus: d.PaymentStatus,
		Comment:       d.Comment,
	}
}

// Session is everything the bot remembers about one user between events
type Session struct {
	State State `json:"state"`
	Draft Draft `json:"draft"`

	// target of the existing-order edit flow
	OrderID   uint             `json:"order_id,omitempty"`
	EditField types.OrderField `json:"edit_field,omitempty"`
}

// IsIdle reports whether the session holds no flow state
func (s Session) IsIdle() bool {
	return s.State == StateIdle
}

// optional maps blank text to nil; skipping and sending empty text are the same thing
func optional(text string) *string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &text
}

func findPlatformByName(platforms []types.Platform, name string) (types.Platform, bool) {
	name = strings.TrimSpace(name)
	for _, p := range platforms {
		if p.Name == name {
			return p, true
		}
	}
	// names are unique case-sensitively, so a fold match is only a fallback
	for _, p := range platforms {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return types.Platform{}, false
}
