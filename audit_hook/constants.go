package audithook

// Action constants for audit events.
const (
	// Authority actions
	ActionRegistryInitialized = "registry.initialized"
	ActionRegistryDeactivated = "registry.deactivated"
	ActionTokensMinted        = "tokens.minted"

	// Ledger actions
	ActionTokensTransferred = "tokens.transferred"
	ActionTokensSwept       = "tokens.swept"

	// Shop and order actions
	ActionShopInitialized = "shop.initialized"
	ActionOrderCreated    = "order.created"
	ActionOrderPaid       = "order.paid"
	ActionOrderCompleted  = "order.completed"

	// Failures
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceRegistry = "registry"
	ResourceLedger   = "ledger"
	ResourceShop     = "shop"
	ResourceOrder    = "order"
)

// Category constants for audit events.
const (
	CategoryAuthority = "authority"
	CategoryTransfer  = "transfer"
	CategoryCommerce  = "commerce"
	CategoryCustody   = "custody"
	CategoryAccess    = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
