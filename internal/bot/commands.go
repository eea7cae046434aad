package bot

// Command constants for Telegram bot commands.
const (
	CommandStart  = "/start"
	CommandCancel = "/cancel"
	CommandStatus = "/status"
	CommandKey    = "/key"
	CommandHelp   = "/help"

	CommandGenKey    = "/genkey"
	CommandApprove   = "/approve"
	CommandReject    = "/reject"
	CommandBan       = "/ban"
	CommandUnban     = "/unban"
	CommandBroadcast = "/broadcast"
	CommandPending   = "/pending"
)

// Callback uniques for inline button interactions.
const (
	CallbackRedeem     = "redeem"
	CallbackBuyPremium = "buy_premium"
	CallbackServices   = "services"
	CallbackService    = "service"
	CallbackStatus     = "status"
	CallbackDevInfo    = "dev_info"
	CallbackBack       = "back"
	CallbackCancel     = "cancel"
)
