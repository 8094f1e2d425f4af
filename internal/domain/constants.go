package domain

// Notification types. Dispatch only special-cases transaction and security;
// the column is an open string so collaborators may introduce new values.
const (
	TypeTransaction = "transaction"
	TypeSecurity    = "security"
	TypeSystem      = "system"
	TypePromo       = "promo"
	TypeGeneric     = "generic"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Transfer outcomes reported by the ledger collaborators.
const (
	OutcomeSent     = "sent"
	OutcomeReceived = "received"
	OutcomeFailed   = "failed"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
