package recon

import "time"

// Status of an individual check or of a whole run.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarning Status = "WARNING"
	StatusFail    Status = "FAIL"
)

// severity orders statuses so the overall outcome is the worst one seen.
var severity = map[Status]int{
	StatusPass:    0,
	StatusWarning: 1,
	StatusFail:    2,
}

// Worse returns the more severe of two statuses.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Tolerance in minor units applied to monetary comparisons.
const Tolerance = 1

// OrphanWarnLimit is the orphan count above which the check fails rather
// than warns.
const OrphanWarnLimit = 10

// Result is one check's outcome.
type Result struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	Message       string         `json:"message"`
	VarianceCents int64          `json:"variance_cents,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// Report is one reconciliation run.
type Report struct {
	ID      int64     `json:"id"`
	RanAt   time.Time `json:"ran_at"`
	RanBy   int64     `json:"ran_by"`
	Overall Status    `json:"overall"`
	Results []Result  `json:"results"`
}

// CreditMismatch pairs a student's recorded credit balance with the sum of
// their credit movements.
type CreditMismatch struct {
	StudentID int64 `json:"student_id"`
	Recorded  int64 `json:"recorded"`
	Derived   int64 `json:"derived"`
}

// InvoiceMismatch pairs an invoice's recorded amount_paid with the sum of
// its active allocations from non-voided transactions.
type InvoiceMismatch struct {
	InvoiceID int64 `json:"invoice_id"`
	Recorded  int64 `json:"recorded"`
	Allocated int64 `json:"allocated"`
}

// AbnormalBalance is an account whose balance violates its sign convention.
type AbnormalBalance struct {
	AccountCode string `json:"account_code"`
	AccountType string `json:"account_type"`
	Balance     int64  `json:"balance"`
}
