package storage

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakfieldhq/backoffice/internal/domain/rules"
)

func createTempDB(t *testing.T) string {
	tmpFile, err := os.CreateTemp("", "test_*.db")
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}

func openTestStorage(t *testing.T) *Storage {
	tmpDB := createTempDB(t)
	t.Cleanup(func() { os.Remove(tmpDB) })

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStorage_MigrationsAreIdempotent(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	store.Close()

	// Reopening must not re-run applied migrations.
	store, err = NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(allMigrations), count)
}

func TestStorage_DepositRoundTrip(t *testing.T) {
	store := openTestStorage(t)

	deposit := &BankDeposit{
		ID:          "dep-1",
		TenantID:    "tenant-a",
		Amount:      dec("1250.75"),
		Date:        day(2025, time.June, 2),
		Description: "weekly takings",
	}
	require.NoError(t, store.SaveDeposit(deposit))

	got, err := store.GetDeposit("tenant-a", "dep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(dec("1250.75")), "got %s", got.Amount)
	assert.True(t, got.Date.Equal(day(2025, time.June, 2)))
	assert.Equal(t, "weekly takings", got.Description)
}

func TestStorage_TenantIsolation(t *testing.T) {
	store := openTestStorage(t)

	deposit := &BankDeposit{
		ID:       "dep-1",
		TenantID: "tenant-a",
		Amount:   dec("100.00"),
		Date:     day(2025, time.June, 2),
	}
	require.NoError(t, store.SaveDeposit(deposit))

	got, err := store.GetDeposit("tenant-b", "dep-1")
	require.NoError(t, err)
	assert.Nil(t, got, "other tenant must not see the deposit")
}

func TestStorage_UnmatchedDepositsAndTenants(t *testing.T) {
	store := openTestStorage(t)

	require.NoError(t, store.SaveDeposit(&BankDeposit{
		ID: "dep-1", TenantID: "tenant-a", Amount: dec("100.00"), Date: day(2025, time.June, 2),
	}))
	require.NoError(t, store.SaveDeposit(&BankDeposit{
		ID: "dep-2", TenantID: "tenant-a", Amount: dec("200.00"), Date: day(2025, time.June, 3),
	}))
	require.NoError(t, store.SaveDeposit(&BankDeposit{
		ID: "dep-3", TenantID: "tenant-b", Amount: dec("300.00"), Date: day(2025, time.June, 3),
	}))

	tenants, err := store.Tenants()
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, tenants)

	// Reconcile a settlement against dep-1; it drops out of the unmatched
	// set.
	require.NoError(t, store.SaveSettlement(&Settlement{
		ID: "set-1", TenantID: "tenant-a",
		SettlementDate: day(2025, time.June, 1), NetAmount: dec("100.00"),
	}))
	updated, err := store.MarkReconciled("tenant-a", "set-1", ReconciliationLink{
		BankDepositID: "dep-1", BankAmount: dec("100.00"), Variance: dec("0.00"), Auto: true,
	})
	require.NoError(t, err)
	require.True(t, updated)

	unmatched, err := store.UnmatchedDeposits("tenant-a")
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "dep-2", unmatched[0].ID)
}

func TestStorage_UnreconciledInWindow(t *testing.T) {
	store := openTestStorage(t)

	save := func(id string, date time.Time, reconciled bool) {
		st := &Settlement{
			ID:             id,
			TenantID:       "tenant-a",
			SettlementDate: date,
			NetAmount:      dec("100.00"),
		}
		require.NoError(t, store.SaveSettlement(st))
		if reconciled {
			ok, err := store.MarkReconciled("tenant-a", id, ReconciliationLink{
				BankDepositID: "dep-x",
				BankAmount:    dec("100.00"),
				Variance:      dec("0.00"),
				Auto:          true,
			})
			require.NoError(t, err)
			require.True(t, ok)
		}
	}

	save("in-window", day(2025, time.June, 1), false)
	save("edge-of-window", day(2025, time.May, 30), false)
	save("too-old", day(2025, time.May, 29), false)
	save("already-done", day(2025, time.June, 1), true)

	got, err := store.UnreconciledInWindow("tenant-a", day(2025, time.May, 30), day(2025, time.June, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "edge-of-window", got[0].ID)
	assert.Equal(t, "in-window", got[1].ID)
}

func TestStorage_MarkReconciledIsConditional(t *testing.T) {
	store := openTestStorage(t)

	st := &Settlement{
		ID:             "set-1",
		TenantID:       "tenant-a",
		SettlementDate: day(2025, time.June, 1),
		NetAmount:      dec("500.00"),
	}
	require.NoError(t, store.SaveSettlement(st))

	link := ReconciliationLink{
		BankDepositID: "dep-1",
		BankAmount:    dec("500.03"),
		Variance:      dec("0.03"),
		Auto:          true,
	}

	ok, err := store.MarkReconciled("tenant-a", "set-1", link)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second attempt hits the reconciled = 0 guard.
	ok, err = store.MarkReconciled("tenant-a", "set-1", link)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetSettlement("tenant-a", "set-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Reconciled)
	assert.True(t, got.AutoReconciled)
	assert.Equal(t, "dep-1", got.BankDepositID)
	require.NotNil(t, got.Variance)
	assert.True(t, got.Variance.Equal(dec("0.03")), "got %s", got.Variance)
	require.NotNil(t, got.BankAmount)
	assert.True(t, got.BankAmount.Equal(dec("500.03")))
	assert.NotNil(t, got.ReconciledAt)
}

func TestStorage_RuleRoundTripAndOrdering(t *testing.T) {
	store := openTestStorage(t)

	amountMin := dec("5.00")
	require.NoError(t, store.SaveRule(&rules.Rule{
		ID: "r-late", TenantID: "tenant-a", Name: "catch-all",
		Priority: 50, Active: true, DescriptionMatch: "sub", CategoryID: "cat-misc",
	}))
	require.NoError(t, store.SaveRule(&rules.Rule{
		ID: "r-first", TenantID: "tenant-a", Name: "vendor rule",
		Priority: 1, Active: true, VendorID: "v-1", AmountMin: &amountMin,
		CategoryID: "cat-supplies", RequiresApproval: true,
	}))
	require.NoError(t, store.SaveRule(&rules.Rule{
		ID: "r-off", TenantID: "tenant-a", Priority: 2, Active: false, CategoryID: "x",
	}))

	active, err := store.ListRules("tenant-a", true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "r-first", active[0].ID)
	assert.Equal(t, "r-late", active[1].ID)
	require.NotNil(t, active[0].AmountMin)
	assert.True(t, active[0].AmountMin.Equal(dec("5.00")))
	assert.Nil(t, active[0].AmountMax)

	all, err := store.ListRules("tenant-a", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStorage_IncrementRuleUse(t *testing.T) {
	store := openTestStorage(t)

	require.NoError(t, store.SaveRule(&rules.Rule{
		ID: "r-1", TenantID: "tenant-a", Priority: 1, Active: true, CategoryID: "c",
	}))

	require.NoError(t, store.IncrementRuleUse("tenant-a", "r-1"))
	require.NoError(t, store.IncrementRuleUse("tenant-a", "r-1"))

	r, err := store.GetRule("tenant-a", "r-1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 2, r.UseCount)
	assert.NotNil(t, r.LastUsedAt)
}

func TestStorage_PendingMatchLifecycle(t *testing.T) {
	store := openTestStorage(t)

	match := &PendingMatch{
		ID:            "pm-1",
		TenantID:      "tenant-a",
		TransactionID: "tx-1",
		RuleID:        "r-1",
		CategoryID:    "cat-1",
		Confidence:    0.75,
		Status:        MatchStatusPending,
	}
	require.NoError(t, store.SavePendingMatch(match))

	open, err := store.HasOpenMatch("tenant-a", "tx-1")
	require.NoError(t, err)
	assert.True(t, open)

	ok, err := store.ResolvePendingMatch("tenant-a", "pm-1", MatchStatusApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	// Terminal states cannot transition again.
	ok, err = store.ResolvePendingMatch("tenant-a", "pm-1", MatchStatusRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetPendingMatch("tenant-a", "pm-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, MatchStatusApproved, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	open, err = store.HasOpenMatch("tenant-a", "tx-1")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestStorage_TransactionsUncategorizedFilter(t *testing.T) {
	store := openTestStorage(t)

	require.NoError(t, store.SaveTransaction(&Transaction{
		ID: "tx-1", TenantID: "tenant-a", Description: "coffee",
		Amount: dec("4.50"), Type: "expense", Date: day(2025, time.June, 1),
	}))
	require.NoError(t, store.SaveTransaction(&Transaction{
		ID: "tx-2", TenantID: "tenant-a", Description: "rent",
		Amount: dec("900.00"), Type: "expense", CategoryID: "cat-rent",
		Date: day(2025, time.June, 1),
	}))

	uncategorized, err := store.ListTransactions("tenant-a", true)
	require.NoError(t, err)
	require.Len(t, uncategorized, 1)
	assert.Equal(t, "tx-1", uncategorized[0].ID)

	require.NoError(t, store.ApplyCategory("tenant-a", "tx-1", "cat-food"))

	uncategorized, err = store.ListTransactions("tenant-a", true)
	require.NoError(t, err)
	assert.Empty(t, uncategorized)
}

func TestStorage_WebhookAudit(t *testing.T) {
	store := openTestStorage(t)

	require.NoError(t, store.LogWebhookEvent(&WebhookAuditEntry{
		ID: "wh-1", EventType: "sale.created", Outcome: "handled", DurationMs: 12,
	}))
	require.NoError(t, store.LogWebhookEvent(&WebhookAuditEntry{
		ID: "wh-2", EventType: "client.merged", Outcome: "ignored", DurationMs: 1,
	}))

	entries, err := store.ListWebhookEvents(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
