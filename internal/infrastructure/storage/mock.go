package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oakfieldhq/backoffice/internal/domain/rules"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu sync.Mutex

	deposits    map[string]*BankDeposit
	settlements map[string]*Settlement
	txs         map[string]*Transaction
	ruleset     map[string]*rules.Rule
	matches     map[string]*PendingMatch
	vendors     map[string]*Vendor
	audit       []*WebhookAuditEntry

	// Hooks for test assertions
	MarkReconciledCalls []string
	LogWebhookCalled    bool
	LastAuditEntry      *WebhookAuditEntry

	// Error injection for testing error paths
	SaveDepositErr     error
	GetDepositErr      error
	SaveTransactionErr error
	WindowQueryErr     error
	MarkReconciledErr  error
	SavePendingErr     error
	LogWebhookEventErr error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		deposits:    make(map[string]*BankDeposit),
		settlements: make(map[string]*Settlement),
		txs:         make(map[string]*Transaction),
		ruleset:     make(map[string]*rules.Rule),
		matches:     make(map[string]*PendingMatch),
		vendors:     make(map[string]*Vendor),
	}
}

func (m *MockRepository) Close() error { return nil }

// --- deposits ---

func (m *MockRepository) SaveDeposit(deposit *BankDeposit) error {
	if m.SaveDepositErr != nil {
		return m.SaveDepositErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *deposit
	m.deposits[deposit.ID] = &cp
	return nil
}

func (m *MockRepository) GetDeposit(tenantID, id string) (*BankDeposit, error) {
	if m.GetDepositErr != nil {
		return nil, m.GetDepositErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deposits[id]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *MockRepository) ListDeposits(tenantID string, limit, offset int) ([]*BankDeposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*BankDeposit
	for _, d := range m.deposits {
		if d.TenantID == tenantID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *MockRepository) UnmatchedDeposits(tenantID string) ([]*BankDeposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make(map[string]bool)
	for _, s := range m.settlements {
		if s.TenantID == tenantID && s.Reconciled && s.BankDepositID != "" {
			matched[s.BankDepositID] = true
		}
	}

	var out []*BankDeposit
	for _, d := range m.deposits {
		if d.TenantID == tenantID && !matched[d.ID] {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MockRepository) Tenants() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, d := range m.deposits {
		if !seen[d.TenantID] {
			seen[d.TenantID] = true
			out = append(out, d.TenantID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- settlements ---

func (m *MockRepository) SaveSettlement(settlement *Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *settlement
	m.settlements[settlement.ID] = &cp
	return nil
}

func (m *MockRepository) GetSettlement(tenantID, id string) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[id]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepository) ListSettlements(tenantID string, unreconciledOnly bool) ([]*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Settlement
	for _, s := range m.settlements {
		if s.TenantID != tenantID {
			continue
		}
		if unreconciledOnly && s.Reconciled {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SettlementDate.After(out[j].SettlementDate)
	})
	return out, nil
}

func (m *MockRepository) UnreconciledInWindow(tenantID string, from, to time.Time) ([]*Settlement, error) {
	if m.WindowQueryErr != nil {
		return nil, m.WindowQueryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fromDay, toDay := dayString(from), dayString(to)
	var out []*Settlement
	for _, s := range m.settlements {
		if s.TenantID != tenantID || s.Reconciled {
			continue
		}
		day := dayString(s.SettlementDate)
		if day >= fromDay && day <= toDay {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SettlementDate.Equal(out[j].SettlementDate) {
			return out[i].SettlementDate.Before(out[j].SettlementDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) MarkReconciled(tenantID, settlementID string, link ReconciliationLink) (bool, error) {
	if m.MarkReconciledErr != nil {
		return false, m.MarkReconciledErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkReconciledCalls = append(m.MarkReconciledCalls, settlementID)

	s, ok := m.settlements[settlementID]
	if !ok || s.TenantID != tenantID || s.Reconciled {
		return false, nil
	}
	now := time.Now()
	s.Reconciled = true
	s.BankDepositID = link.BankDepositID
	bankAmount := link.BankAmount
	variance := link.Variance
	s.BankAmount = &bankAmount
	s.Variance = &variance
	s.AutoReconciled = link.Auto
	s.ReconciledAt = &now
	return true, nil
}

// --- transactions ---

func (m *MockRepository) SaveTransaction(tx *Transaction) error {
	if m.SaveTransactionErr != nil {
		return m.SaveTransactionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tx
	m.txs[tx.ID] = &cp
	return nil
}

func (m *MockRepository) GetTransaction(tenantID, id string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.TenantID != tenantID {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (m *MockRepository) ListTransactions(tenantID string, uncategorizedOnly bool) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transaction
	for _, tx := range m.txs {
		if tx.TenantID != tenantID {
			continue
		}
		if uncategorizedOnly && tx.CategoryID != "" {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) ApplyCategory(tenantID, transactionID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[transactionID]
	if ok && tx.TenantID == tenantID {
		tx.CategoryID = categoryID
	}
	return nil
}

// --- rules ---

func (m *MockRepository) SaveRule(rule *rules.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rule
	m.ruleset[rule.ID] = &cp
	return nil
}

func (m *MockRepository) GetRule(tenantID, id string) (*rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ruleset[id]
	if !ok || r.TenantID != tenantID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockRepository) ListRules(tenantID string, activeOnly bool) ([]rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rules.Rule
	for _, r := range m.ruleset {
		if r.TenantID != tenantID {
			continue
		}
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) DeleteRule(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ruleset[id]; ok && r.TenantID == tenantID {
		delete(m.ruleset, id)
	}
	return nil
}

func (m *MockRepository) IncrementRuleUse(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ruleset[id]; ok && r.TenantID == tenantID {
		r.UseCount++
		now := time.Now()
		r.LastUsedAt = &now
	}
	return nil
}

// --- pending matches ---

func (m *MockRepository) SavePendingMatch(match *PendingMatch) error {
	if m.SavePendingErr != nil {
		return m.SavePendingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *match
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.matches[match.ID] = &cp
	return nil
}

func (m *MockRepository) GetPendingMatch(tenantID, id string) (*PendingMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.matches[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MockRepository) ListPendingMatches(tenantID, status string) ([]*PendingMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*PendingMatch
	for _, p := range m.matches {
		if p.TenantID != tenantID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) HasOpenMatch(tenantID, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.matches {
		if p.TenantID == tenantID && p.TransactionID == transactionID && p.Status == MatchStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) ResolvePendingMatch(tenantID, id, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.matches[id]
	if !ok || p.TenantID != tenantID || p.Status != MatchStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = status
	p.ResolvedAt = &now
	return true, nil
}

// --- vendors ---

func (m *MockRepository) SaveVendor(vendor *Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *vendor
	m.vendors[vendor.ID] = &cp
	return nil
}

func (m *MockRepository) ListVendors(tenantID string) ([]*Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Vendor
	for _, v := range m.vendors {
		if v.TenantID == tenantID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// --- webhook audit ---

func (m *MockRepository) LogWebhookEvent(entry *WebhookAuditEntry) error {
	if m.LogWebhookEventErr != nil {
		return m.LogWebhookEventErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogWebhookCalled = true
	cp := *entry
	if cp.ReceivedAt.IsZero() {
		cp.ReceivedAt = time.Now()
	}
	m.LastAuditEntry = &cp
	m.audit = append(m.audit, &cp)
	return nil
}

func (m *MockRepository) ListWebhookEvents(limit int) ([]*WebhookAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.audit) {
		limit = len(m.audit)
	}
	out := make([]*WebhookAuditEntry, 0, limit)
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.audit[i]
		out = append(out, &cp)
	}
	return out, nil
}

// WebhookAudited reports whether any audit entry has been written. Safe to
// poll from tests while the handler's audit goroutine is still running.
func (m *MockRepository) WebhookAudited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LogWebhookCalled
}

// AuditEntry returns a copy of the most recent audit entry, or nil.
func (m *MockRepository) AuditEntry() *WebhookAuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LastAuditEntry == nil {
		return nil
	}
	cp := *m.LastAuditEntry
	return &cp
}
