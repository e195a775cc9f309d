package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankDeposit is an observed deposit on the business bank account.
// Immutable once recorded.
type BankDeposit struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Settlement is a batch of processor-collected funds expected to arrive as
// a single bank deposit. It is mutated exactly once, when reconciled.
type Settlement struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenant_id"`
	SettlementDate   time.Time       `json:"settlement_date"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`

	Reconciled     bool             `json:"reconciled"`
	BankDepositID  string           `json:"bank_deposit_id,omitempty"`
	BankAmount     *decimal.Decimal `json:"bank_amount,omitempty"`
	Variance       *decimal.Decimal `json:"variance,omitempty"`
	AutoReconciled bool             `json:"auto_reconciled"`
	ReconciledAt   *time.Time       `json:"reconciled_at,omitempty"`
}

// ReconciliationLink is the data written onto a settlement when it is
// linked to a bank deposit.
type ReconciliationLink struct {
	BankDepositID string
	BankAmount    decimal.Decimal
	Variance      decimal.Decimal
	Auto          bool
}

// Transaction is a sales/expense transaction imported from the upstream
// platform.
type Transaction struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	VendorID    string          `json:"vendor_id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	CategoryID  string          `json:"category_id,omitempty"`
	PaymentType string          `json:"payment_type,omitempty"`
	EntryMethod string          `json:"entry_method,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Vendor is a supplier or counterparty referenced by rules and transactions.
type Vendor struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenant_id"`
	Name              string    `json:"name"`
	DefaultCategoryID string    `json:"default_category_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Pending match statuses. Approved and rejected are terminal.
const (
	MatchStatusPending  = "pending"
	MatchStatusApproved = "approved"
	MatchStatusRejected = "rejected"
)

// PendingMatch links a transaction to the rule that matched it, awaiting
// human approval.
type PendingMatch struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	TransactionID string     `json:"transaction_id"`
	RuleID        string     `json:"rule_id"`
	CategoryID    string     `json:"category_id"`
	Confidence    float64    `json:"confidence"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// WebhookAuditEntry records one delivery from the membership platform:
// what arrived, how handling went, and how long it took.
type WebhookAuditEntry struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	ReceivedAt time.Time `json:"received_at"`
}
