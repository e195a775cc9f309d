package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/domain/rules"
)

// Storage provides SQLite database access for the back office.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// dayString renders a calendar date the way it is stored, so range scans
// compare lexically.
func dayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func parseDay(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func parseAmount(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func nullAmount(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d := parseAmount(ns.String)
	return &d
}

// --- deposits ---

// SaveDeposit inserts a deposit record. Deposits are immutable once
// observed, so there is no upsert here.
func (s *Storage) SaveDeposit(deposit *BankDeposit) error {
	query := `
	INSERT INTO bank_deposits (id, tenant_id, amount, deposit_date, description)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		deposit.ID,
		deposit.TenantID,
		deposit.Amount.String(),
		dayString(deposit.Date),
		deposit.Description,
	)
	return err
}

// GetDeposit retrieves a deposit by ID
func (s *Storage) GetDeposit(tenantID, id string) (*BankDeposit, error) {
	query := `
	SELECT id, tenant_id, amount, deposit_date, description, created_at
	FROM bank_deposits WHERE tenant_id = ? AND id = ?
	`
	d := &BankDeposit{}
	var amount, depositDate string
	err := s.db.QueryRow(query, tenantID, id).Scan(
		&d.ID, &d.TenantID, &amount, &depositDate, &d.Description, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Amount = parseAmount(amount)
	d.Date = parseDay(depositDate)
	return d, nil
}

// ListDeposits returns deposits for the tenant, newest first
func (s *Storage) ListDeposits(tenantID string, limit, offset int) ([]*BankDeposit, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, tenant_id, amount, deposit_date, description, created_at
	FROM bank_deposits WHERE tenant_id = ?
	ORDER BY deposit_date DESC, id
	LIMIT ? OFFSET ?
	`
	rows, err := s.db.Query(query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var deposits []*BankDeposit
	for rows.Next() {
		d := &BankDeposit{}
		var amount, depositDate string
		if err := rows.Scan(&d.ID, &d.TenantID, &amount, &depositDate, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Amount = parseAmount(amount)
		d.Date = parseDay(depositDate)
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

// UnmatchedDeposits returns deposits no reconciled settlement points at,
// oldest first
func (s *Storage) UnmatchedDeposits(tenantID string) ([]*BankDeposit, error) {
	query := `
	SELECT id, tenant_id, amount, deposit_date, description, created_at
	FROM bank_deposits
	WHERE tenant_id = ?
	  AND id NOT IN (
		SELECT bank_deposit_id FROM settlements
		WHERE tenant_id = ? AND reconciled = 1 AND bank_deposit_id IS NOT NULL
	  )
	ORDER BY deposit_date, id
	`
	rows, err := s.db.Query(query, tenantID, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var deposits []*BankDeposit
	for rows.Next() {
		d := &BankDeposit{}
		var amount, depositDate string
		if err := rows.Scan(&d.ID, &d.TenantID, &amount, &depositDate, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Amount = parseAmount(amount)
		d.Date = parseDay(depositDate)
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

// Tenants returns every tenant ID that has recorded a deposit
func (s *Storage) Tenants() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT tenant_id FROM bank_deposits ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

// --- settlements ---

const settlementColumns = `id, tenant_id, settlement_date, net_amount, transaction_count,
	reconciled, bank_deposit_id, bank_amount, variance, auto_reconciled, reconciled_at`

func scanSettlement(scan func(...any) error) (*Settlement, error) {
	st := &Settlement{}
	var settlementDate, netAmount string
	var depositID, bankAmount, variance sql.NullString
	var reconciledAt sql.NullTime

	err := scan(
		&st.ID, &st.TenantID, &settlementDate, &netAmount, &st.TransactionCount,
		&st.Reconciled, &depositID, &bankAmount, &variance, &st.AutoReconciled, &reconciledAt,
	)
	if err != nil {
		return nil, err
	}

	st.SettlementDate = parseDay(settlementDate)
	st.NetAmount = parseAmount(netAmount)
	if depositID.Valid {
		st.BankDepositID = depositID.String
	}
	st.BankAmount = nullAmount(bankAmount)
	st.Variance = nullAmount(variance)
	if reconciledAt.Valid {
		t := reconciledAt.Time
		st.ReconciledAt = &t
	}
	return st, nil
}

// SaveSettlement inserts a settlement record
func (s *Storage) SaveSettlement(settlement *Settlement) error {
	query := `
	INSERT INTO settlements (id, tenant_id, settlement_date, net_amount, transaction_count, reconciled)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		settlement.ID,
		settlement.TenantID,
		dayString(settlement.SettlementDate),
		settlement.NetAmount.String(),
		settlement.TransactionCount,
		settlement.Reconciled,
	)
	return err
}

// GetSettlement retrieves a settlement by ID
func (s *Storage) GetSettlement(tenantID, id string) (*Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE tenant_id = ? AND id = ?`
	row := s.db.QueryRow(query, tenantID, id)
	st, err := scanSettlement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

// ListSettlements returns settlements for the tenant, newest first
func (s *Storage) ListSettlements(tenantID string, unreconciledOnly bool) ([]*Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE tenant_id = ?`
	if unreconciledOnly {
		query += ` AND reconciled = 0`
	}
	query += ` ORDER BY settlement_date DESC, id`

	rows, err := s.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var settlements []*Settlement
	for rows.Next() {
		st, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

// UnreconciledInWindow returns unreconciled settlements inside the
// inclusive [from, to] date range
func (s *Storage) UnreconciledInWindow(tenantID string, from, to time.Time) ([]*Settlement, error) {
	query := `SELECT ` + settlementColumns + `
	FROM settlements
	WHERE tenant_id = ? AND reconciled = 0
	  AND settlement_date >= ? AND settlement_date <= ?
	ORDER BY settlement_date, id`

	rows, err := s.db.Query(query, tenantID, dayString(from), dayString(to))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var settlements []*Settlement
	for rows.Next() {
		st, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

// MarkReconciled links a settlement to a deposit. The WHERE clause keeps
// the update conditional on the settlement still being unreconciled, which
// is what makes matcher re-runs side-effect free.
func (s *Storage) MarkReconciled(tenantID, settlementID string, link ReconciliationLink) (bool, error) {
	query := `
	UPDATE settlements
	SET reconciled = 1, bank_deposit_id = ?, bank_amount = ?, variance = ?,
	    auto_reconciled = ?, reconciled_at = CURRENT_TIMESTAMP
	WHERE tenant_id = ? AND id = ? AND reconciled = 0
	`
	result, err := s.db.Exec(query,
		link.BankDepositID,
		link.BankAmount.String(),
		link.Variance.String(),
		link.Auto,
		tenantID,
		settlementID,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// --- transactions ---

// SaveTransaction inserts or replaces a transaction
func (s *Storage) SaveTransaction(tx *Transaction) error {
	query := `
	INSERT OR REPLACE INTO transactions
	(id, tenant_id, vendor_id, description, amount, type, category_id, payment_type, entry_method, tx_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		tx.ID, tx.TenantID, tx.VendorID, tx.Description,
		tx.Amount.String(), tx.Type, tx.CategoryID,
		tx.PaymentType, tx.EntryMethod, dayString(tx.Date),
	)
	return err
}

const transactionColumns = `id, tenant_id, vendor_id, description, amount, type,
	category_id, payment_type, entry_method, tx_date, created_at`

func scanTransaction(scan func(...any) error) (*Transaction, error) {
	tx := &Transaction{}
	var amount, txDate string
	err := scan(
		&tx.ID, &tx.TenantID, &tx.VendorID, &tx.Description, &amount, &tx.Type,
		&tx.CategoryID, &tx.PaymentType, &tx.EntryMethod, &txDate, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Amount = parseAmount(amount)
	tx.Date = parseDay(txDate)
	return tx, nil
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(tenantID, id string) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = ? AND id = ?`
	row := s.db.QueryRow(query, tenantID, id)
	tx, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tx, err
}

// ListTransactions returns transactions for the tenant, newest first
func (s *Storage) ListTransactions(tenantID string, uncategorizedOnly bool) ([]*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = ?`
	if uncategorizedOnly {
		query += ` AND category_id = ''`
	}
	query += ` ORDER BY tx_date DESC, id`

	rows, err := s.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var txs []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ApplyCategory sets the confirmed category on a transaction
func (s *Storage) ApplyCategory(tenantID, transactionID, categoryID string) error {
	query := `UPDATE transactions SET category_id = ? WHERE tenant_id = ? AND id = ?`
	_, err := s.db.Exec(query, categoryID, tenantID, transactionID)
	return err
}

// --- rules ---

// SaveRule inserts or replaces a rule
func (s *Storage) SaveRule(rule *rules.Rule) error {
	query := `
	INSERT OR REPLACE INTO reconciliation_rules
	(id, tenant_id, name, priority, active, vendor_id, description_match,
	 amount_min, amount_max, transaction_type, category_id, requires_approval,
	 use_count, last_used_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var amountMin, amountMax any
	if rule.AmountMin != nil {
		amountMin = rule.AmountMin.String()
	}
	if rule.AmountMax != nil {
		amountMax = rule.AmountMax.String()
	}

	_, err := s.db.Exec(query,
		rule.ID, rule.TenantID, rule.Name, rule.Priority, rule.Active,
		rule.VendorID, rule.DescriptionMatch, amountMin, amountMax,
		rule.TransactionType, rule.CategoryID, rule.RequiresApproval,
		rule.UseCount, rule.LastUsedAt,
	)
	return err
}

const ruleColumns = `id, tenant_id, name, priority, active, vendor_id, description_match,
	amount_min, amount_max, transaction_type, category_id, requires_approval, use_count, last_used_at`

func scanRule(scan func(...any) error) (*rules.Rule, error) {
	r := &rules.Rule{}
	var amountMin, amountMax sql.NullString
	var lastUsed sql.NullTime
	err := scan(
		&r.ID, &r.TenantID, &r.Name, &r.Priority, &r.Active, &r.VendorID,
		&r.DescriptionMatch, &amountMin, &amountMax, &r.TransactionType,
		&r.CategoryID, &r.RequiresApproval, &r.UseCount, &lastUsed,
	)
	if err != nil {
		return nil, err
	}
	r.AmountMin = nullAmount(amountMin)
	r.AmountMax = nullAmount(amountMax)
	if lastUsed.Valid {
		t := lastUsed.Time
		r.LastUsedAt = &t
	}
	return r, nil
}

// GetRule retrieves a rule by ID
func (s *Storage) GetRule(tenantID, id string) (*rules.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reconciliation_rules WHERE tenant_id = ? AND id = ?`
	row := s.db.QueryRow(query, tenantID, id)
	r, err := scanRule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListRules returns the tenant's rules ordered by priority ascending
func (s *Storage) ListRules(tenantID string, activeOnly bool) ([]rules.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reconciliation_rules WHERE tenant_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY priority, id`

	rows, err := s.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ruleset []rules.Rule
	for rows.Next() {
		r, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		ruleset = append(ruleset, *r)
	}
	return ruleset, rows.Err()
}

// DeleteRule removes a rule
func (s *Storage) DeleteRule(tenantID, id string) error {
	_, err := s.db.Exec(`DELETE FROM reconciliation_rules WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return err
}

// IncrementRuleUse bumps the usage counter and last-used time
func (s *Storage) IncrementRuleUse(tenantID, id string) error {
	query := `
	UPDATE reconciliation_rules
	SET use_count = use_count + 1, last_used_at = CURRENT_TIMESTAMP
	WHERE tenant_id = ? AND id = ?
	`
	_, err := s.db.Exec(query, tenantID, id)
	return err
}

// --- pending matches ---

// SavePendingMatch inserts a pending match
func (s *Storage) SavePendingMatch(match *PendingMatch) error {
	query := `
	INSERT INTO pending_matches (id, tenant_id, transaction_id, rule_id, category_id, confidence, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		match.ID, match.TenantID, match.TransactionID, match.RuleID,
		match.CategoryID, match.Confidence, match.Status,
	)
	return err
}

const matchColumns = `id, tenant_id, transaction_id, rule_id, category_id, confidence, status, created_at, resolved_at`

func scanMatch(scan func(...any) error) (*PendingMatch, error) {
	m := &PendingMatch{}
	var resolved sql.NullTime
	err := scan(
		&m.ID, &m.TenantID, &m.TransactionID, &m.RuleID, &m.CategoryID,
		&m.Confidence, &m.Status, &m.CreatedAt, &resolved,
	)
	if err != nil {
		return nil, err
	}
	if resolved.Valid {
		t := resolved.Time
		m.ResolvedAt = &t
	}
	return m, nil
}

// GetPendingMatch retrieves a pending match by ID
func (s *Storage) GetPendingMatch(tenantID, id string) (*PendingMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM pending_matches WHERE tenant_id = ? AND id = ?`
	row := s.db.QueryRow(query, tenantID, id)
	m, err := scanMatch(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListPendingMatches returns matches for the tenant, optionally by status
func (s *Storage) ListPendingMatches(tenantID, status string) ([]*PendingMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM pending_matches WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var matches []*PendingMatch
	for rows.Next() {
		m, err := scanMatch(rows.Scan)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// HasOpenMatch reports whether the transaction already has a pending suggestion
func (s *Storage) HasOpenMatch(tenantID, transactionID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM pending_matches WHERE tenant_id = ? AND transaction_id = ? AND status = 'pending'`
	err := s.db.QueryRow(query, tenantID, transactionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ResolvePendingMatch transitions a pending match to a terminal status
func (s *Storage) ResolvePendingMatch(tenantID, id, status string) (bool, error) {
	query := `
	UPDATE pending_matches
	SET status = ?, resolved_at = CURRENT_TIMESTAMP
	WHERE tenant_id = ? AND id = ? AND status = 'pending'
	`
	result, err := s.db.Exec(query, status, tenantID, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// --- vendors ---

// SaveVendor inserts or replaces a vendor
func (s *Storage) SaveVendor(vendor *Vendor) error {
	query := `
	INSERT OR REPLACE INTO vendors (id, tenant_id, name, default_category_id)
	VALUES (?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, vendor.ID, vendor.TenantID, vendor.Name, vendor.DefaultCategoryID)
	return err
}

// ListVendors returns the tenant's vendors by name
func (s *Storage) ListVendors(tenantID string) ([]*Vendor, error) {
	query := `
	SELECT id, tenant_id, name, default_category_id, created_at
	FROM vendors WHERE tenant_id = ? ORDER BY name, id
	`
	rows, err := s.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var vendors []*Vendor
	for rows.Next() {
		v := &Vendor{}
		if err := rows.Scan(&v.ID, &v.TenantID, &v.Name, &v.DefaultCategoryID, &v.CreatedAt); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// --- webhook audit ---

// LogWebhookEvent records one webhook delivery
func (s *Storage) LogWebhookEvent(entry *WebhookAuditEntry) error {
	query := `
	INSERT INTO webhook_audit (id, event_type, outcome, detail, duration_ms)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, entry.ID, entry.EventType, entry.Outcome, entry.Detail, entry.DurationMs)
	return err
}

// ListWebhookEvents returns recent deliveries, newest first
func (s *Storage) ListWebhookEvents(limit int) ([]*WebhookAuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, event_type, outcome, detail, duration_ms, received_at
	FROM webhook_audit ORDER BY received_at DESC, id LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*WebhookAuditEntry
	for rows.Next() {
		e := &WebhookAuditEntry{}
		if err := rows.Scan(&e.ID, &e.EventType, &e.Outcome, &e.Detail, &e.DurationMs, &e.ReceivedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
