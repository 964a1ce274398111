package approval

import "time"

// Decision enumerates approval outcomes.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// RequestStatus enumerates approval request lifecycle values.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// Rule gates a mutation behind sign-off. Amount rules match when the
// transaction total reaches MinAmount; void rules additionally match when the
// original transaction is at least DaysSinceTxn days old. Rules combine with
// OR logic: any match gates the action.
type Rule struct {
	ID              int64
	TransactionType string
	MinAmount       int64 // minor units; 0 disables the amount dimension
	DaysSinceTxn    int   // 0 disables the age dimension
	RequiredRole    string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Request is one pending/resolved approval for an entity.
type Request struct {
	ID          int64
	EntityType  string
	EntityID    string
	Status      RequestStatus
	RequestedBy int64
	Note        string
	ResolvedBy  *int64
	ResolvedAt  *time.Time
	Comments    string
	CreatedAt   time.Time
}
