package storage

import (
	"time"

	"github.com/oakfieldhq/backoffice/internal/domain/rules"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with the in-memory mock straightforward.
//
// Every method is tenant-scoped: callers pass the tenant ID explicitly and
// implementations must filter every statement on it.
type Repository interface {
	DepositRepository
	SettlementRepository
	TransactionRepository
	RuleRepository
	PendingMatchRepository
	VendorRepository
	WebhookAuditRepository

	// Tenants returns every tenant ID that has recorded a deposit. The
	// sweep job iterates over this.
	Tenants() ([]string, error)

	Close() error
}

// DepositRepository handles bank deposit records.
type DepositRepository interface {
	// SaveDeposit inserts a deposit. Deposits are immutable once observed.
	SaveDeposit(deposit *BankDeposit) error

	// GetDeposit retrieves a deposit by ID, or nil when absent.
	GetDeposit(tenantID, id string) (*BankDeposit, error)

	// ListDeposits returns deposits for the tenant, newest first.
	ListDeposits(tenantID string, limit, offset int) ([]*BankDeposit, error)

	// UnmatchedDeposits returns deposits no reconciled settlement points
	// at yet, oldest first.
	UnmatchedDeposits(tenantID string) ([]*BankDeposit, error)
}

// SettlementRepository handles payment-processor settlement records.
type SettlementRepository interface {
	// SaveSettlement inserts a settlement.
	SaveSettlement(settlement *Settlement) error

	// GetSettlement retrieves a settlement by ID, or nil when absent.
	GetSettlement(tenantID, id string) (*Settlement, error)

	// ListSettlements returns settlements for the tenant, newest first.
	// With unreconciledOnly set, already-linked settlements are excluded.
	ListSettlements(tenantID string, unreconciledOnly bool) ([]*Settlement, error)

	// UnreconciledInWindow returns unreconciled settlements dated inside
	// [from, to] inclusive for the tenant.
	UnreconciledInWindow(tenantID string, from, to time.Time) ([]*Settlement, error)

	// MarkReconciled conditionally links a settlement to a deposit. The
	// update only applies when the settlement is still unreconciled; the
	// return value reports whether a row was written.
	MarkReconciled(tenantID, settlementID string, link ReconciliationLink) (bool, error)
}

// TransactionRepository handles imported transactions.
type TransactionRepository interface {
	// SaveTransaction inserts or replaces a transaction.
	SaveTransaction(tx *Transaction) error

	// GetTransaction retrieves a transaction by ID, or nil when absent.
	GetTransaction(tenantID, id string) (*Transaction, error)

	// ListTransactions returns transactions for the tenant, newest first.
	// With uncategorizedOnly set, transactions that already carry a
	// confirmed category are excluded.
	ListTransactions(tenantID string, uncategorizedOnly bool) ([]*Transaction, error)

	// ApplyCategory sets the confirmed category on a transaction.
	ApplyCategory(tenantID, transactionID, categoryID string) error
}

// RuleRepository handles reconciliation rules.
type RuleRepository interface {
	// SaveRule inserts or replaces a rule.
	SaveRule(rule *rules.Rule) error

	// GetRule retrieves a rule by ID, or nil when absent.
	GetRule(tenantID, id string) (*rules.Rule, error)

	// ListRules returns the tenant's rules ordered by priority ascending.
	// With activeOnly set, disabled rules are excluded.
	ListRules(tenantID string, activeOnly bool) ([]rules.Rule, error)

	// DeleteRule removes a rule.
	DeleteRule(tenantID, id string) error

	// IncrementRuleUse bumps the rule's usage counter and last-used time.
	IncrementRuleUse(tenantID, id string) error
}

// PendingMatchRepository handles rule-suggested categorizations awaiting
// human approval.
type PendingMatchRepository interface {
	// SavePendingMatch inserts a pending match.
	SavePendingMatch(match *PendingMatch) error

	// GetPendingMatch retrieves a pending match by ID, or nil when absent.
	GetPendingMatch(tenantID, id string) (*PendingMatch, error)

	// ListPendingMatches returns matches for the tenant, optionally
	// filtered by status, newest first.
	ListPendingMatches(tenantID, status string) ([]*PendingMatch, error)

	// HasOpenMatch reports whether the transaction already has a pending
	// suggestion, so re-runs of the engine do not pile up duplicates.
	HasOpenMatch(tenantID, transactionID string) (bool, error)

	// ResolvePendingMatch transitions a pending match to approved or
	// rejected. The update only applies while the match is still pending;
	// the return value reports whether a row was written.
	ResolvePendingMatch(tenantID, id, status string) (bool, error)
}

// VendorRepository handles vendors referenced by rules and transactions.
type VendorRepository interface {
	// SaveVendor inserts or replaces a vendor.
	SaveVendor(vendor *Vendor) error

	// ListVendors returns the tenant's vendors by name.
	ListVendors(tenantID string) ([]*Vendor, error)
}

// WebhookAuditRepository logs webhook deliveries. Writes are best-effort:
// callers treat failures as log-and-continue.
type WebhookAuditRepository interface {
	// LogWebhookEvent records one delivery.
	LogWebhookEvent(entry *WebhookAuditEntry) error

	// ListWebhookEvents returns recent deliveries, newest first.
	ListWebhookEvents(limit int) ([]*WebhookAuditEntry, error)
}
