package presentation

// Fixed message texts
const (
	Welcome = "👋 Hi! I keep track of orders and mirror them to the report spreadsheet.\n\nPick an action below."
	Help    = "<b>How to use the bot</b>\n\n" +
		"📝 <b>Create order</b> walks you through name, platform, link, payment status and comment, then shows a review before saving.\n" +
		"📋 <b>View orders</b> lists orders newest first; open one to edit or delete it.\n" +
		"⚙️ <b>Manage platforms</b> adds or removes platforms.\n\n" +
		"/start shows the main menu, /cancel abandons whatever you are doing."
	MainMenu  = "🏠 Main menu"
	Cancelled = "❌ Cancelled."

	AccessDenied = "⛔ Access denied."
	StoreFailed  = "⚠️ Something went wrong while saving. Please try again."
	TooMany      = "⏳ Too many requests, slow down a little."
	UseButtons   = "Please use the buttons above, or /cancel."

	AskName          = "📝 Send the order <b>name</b>:"
	AskPlatform      = "🛒 Choose the <b>platform</b>:"
	AskLink          = "🔗 Send the order <b>link</b> or skip:"
	AskPaymentStatus = "💳 Send the <b>payment status</b>:"
	AskComment       = "💬 Send a <b>comment</b> or skip:"
	ChooseDraftField = "✏️ Which field do you want to change?"
	UnknownPlatform  = "⚠️ No platform with that name."

	NoPlatformsForOrder = "⚠️ There are no platforms yet. Add one under ⚙️ Manage platforms first."
	ChooseOrderField    = "✏️ Which field do you want to edit?"
	OrderNotFound       = "Order not found, it may have been deleted."
	OrderDeleted        = "🗑️ Order deleted."

	PlatformMenu         = "⚙️ <b>Platform management</b>"
	AskPlatformName      = "Send the new platform name:"
	ChoosePlatformDelete = "Choose the platform to delete:"
	NoPlatformsToDelete  = "There are no platforms to delete."
	AllPlatformsRemoved  = "All platforms removed."
	PlatformDeleted      = "Platform deleted."
	PlatformInUse        = "This platform is used by existing orders and cannot be deleted."
)

// Reply keyboard labels. Texts equal to these are handled as commands.
const (
	MainMenuButton = "Main menu"
	SheetButton    = "Sheet"
)
