package types

// Language is the chat locale of a user.
type Language string

const (
	LanguageRU Language = "ru"
	LanguageEN Language = "en"
)

// SubscriptionStatus is the broker's own view of a subscription's state.
// ActualStatus (see domain/subscription) derives "expired" from EndDate
// even when Status still reads Active, so schedulers never need to mutate
// this field just because time passed.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
	SubscriptionStatusDisabled SubscriptionStatus = "disabled"
)

// TransactionType is the closed set of ledger entry kinds.
type TransactionType string

const (
	TransactionTypeDeposit            TransactionType = "deposit"
	TransactionTypeWithdrawal         TransactionType = "withdrawal"
	TransactionTypeSubscriptionPayment TransactionType = "subscription_payment"
	TransactionTypeReferralBonus      TransactionType = "referral_bonus"
	TransactionTypePromocodeBonus     TransactionType = "promocode_bonus"
	TransactionTypeRefund             TransactionType = "refund"
)

// IsCredit reports whether t increases the user's balance.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeReferralBonus, TransactionTypePromocodeBonus, TransactionTypeRefund:
		return true
	default:
		return false
	}
}

// PaymentProvider identifies the external top-up source for a Transaction.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderStars  PaymentProvider = "telegram_stars"
	PaymentProviderManual PaymentProvider = "manual"
)

// SubscriptionEventType is the closed set of audit event names (§4.8/§4.9).
type SubscriptionEventType string

const (
	EventTrialActivated        SubscriptionEventType = "trial_activated"
	EventSubscriptionPurchased SubscriptionEventType = "subscription_purchased"
	EventSubscriptionExtended  SubscriptionEventType = "subscription_extended"
	EventServersAdded          SubscriptionEventType = "servers_added"
	EventServersRemoved        SubscriptionEventType = "servers_removed"
	EventTrafficChanged        SubscriptionEventType = "traffic_changed"
	EventDevicesChanged        SubscriptionEventType = "devices_changed"
	EventTrafficReset          SubscriptionEventType = "traffic_reset"
	EventModemToggled          SubscriptionEventType = "modem_toggled"
	EventAutopayEnabled        SubscriptionEventType = "autopay_enabled"
	EventAutopayDisabled       SubscriptionEventType = "autopay_disabled"
	EventAutopayAttempted      SubscriptionEventType = "autopay_attempted"
	EventTrialExpired          SubscriptionEventType = "trial_expired"
	EventPaymentReceived       SubscriptionEventType = "payment_received"
	EventLuckyGamePlayed       SubscriptionEventType = "lucky_game_played"
)

// CheckoutStep is the state machine over the configuration wizard (§4.5).
type CheckoutStep string

const (
	StepSelectingPeriod     CheckoutStep = "selecting_period"
	StepSelectingTraffic    CheckoutStep = "selecting_traffic"
	StepSelectingCountries  CheckoutStep = "selecting_countries"
	StepSelectingDevices    CheckoutStep = "selecting_devices"
	StepConfirmingPurchase  CheckoutStep = "confirming_purchase"
	StepCommitted           CheckoutStep = "committed"
	StepCartSavedForTopup   CheckoutStep = "cart_saved_for_topup"
)

// Command is the typed replacement for the source's stringly-typed chat
// callback routing (DESIGN NOTES: "stringly-typed callback routing").
type Command string

const (
	CommandBuyTrial        Command = "buy_trial"
	CommandPurchase        Command = "purchase"
	CommandExtend          Command = "extend"
	CommandAddTraffic      Command = "add_traffic"
	CommandAddDevices      Command = "add_devices"
	CommandAddServers      Command = "add_servers"
	CommandRemoveServers   Command = "remove_servers"
	CommandResetTraffic    Command = "reset_traffic"
	CommandToggleModem     Command = "toggle_modem"
	CommandToggleAutopay   Command = "toggle_autopay"
	CommandTopUp           Command = "top_up"
	CommandUnknown         Command = ""
)

// ParseCommand parses a raw chat callback payload into a Command. Unknown
// callbacks are never fatal: the caller logs and ignores them.
func ParseCommand(raw string) Command {
	switch Command(raw) {
	case CommandBuyTrial, CommandPurchase, CommandExtend, CommandAddTraffic,
		CommandAddDevices, CommandAddServers, CommandRemoveServers,
		CommandResetTraffic, CommandToggleModem, CommandToggleAutopay, CommandTopUp:
		return Command(raw)
	default:
		return CommandUnknown
	}
}
