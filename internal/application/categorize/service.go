// Package categorize runs the reconciliation rules engine over imported
// transactions and manages the resulting pending matches through their
// approval lifecycle.
package categorize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oakfieldhq/backoffice/internal/domain/rules"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// Service evaluates rules and persists suggestions. Categorization only
// becomes effective on a transaction after human approval.
type Service struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewService creates a categorization service. A nil logger falls back to
// slog.Default.
func NewService(repo storage.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Options controls a suggestion run.
type Options struct {
	// IncludeConfirmed re-evaluates transactions that already carry a
	// confirmed category. Off by default so re-runs never clobber human
	// decisions.
	IncludeConfirmed bool
}

// RunSummary reports what a suggestion run did.
type RunSummary struct {
	Evaluated int `json:"evaluated"`
	Suggested int `json:"suggested"`
	Skipped   int `json:"skipped"`
}

// SuggestCategories evaluates every active rule against the tenant's
// transactions and persists a pending match for each first-winning rule.
// Transactions that already have an open suggestion are skipped.
//
// An empty tenant ID yields an empty summary, mirroring the read-path
// policy of the matcher.
func (s *Service) SuggestCategories(ctx context.Context, tenantID string, opts Options) (*RunSummary, error) {
	summary := &RunSummary{}
	if tenantID == "" {
		return summary, nil
	}

	ruleset, err := s.repo.ListRules(tenantID, true)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if len(ruleset) == 0 {
		return summary, nil
	}

	txs, err := s.repo.ListTransactions(tenantID, !opts.IncludeConfirmed)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	for _, tx := range txs {
		summary.Evaluated++

		open, err := s.repo.HasOpenMatch(tenantID, tx.ID)
		if err != nil {
			return nil, fmt.Errorf("check open match for %s: %w", tx.ID, err)
		}
		if open {
			summary.Skipped++
			continue
		}

		match := rules.Evaluate(rules.Transaction{
			ID:          tx.ID,
			VendorID:    tx.VendorID,
			Description: tx.Description,
			Amount:      tx.Amount,
			Type:        tx.Type,
			CategoryID:  tx.CategoryID,
		}, ruleset)
		if match == nil {
			continue
		}

		pending := &storage.PendingMatch{
			ID:            uuid.NewString(),
			TenantID:      tenantID,
			TransactionID: match.TransactionID,
			RuleID:        match.RuleID,
			CategoryID:    match.CategoryID,
			Confidence:    match.Confidence,
			Status:        storage.MatchStatusPending,
		}
		if err := s.repo.SavePendingMatch(pending); err != nil {
			return nil, fmt.Errorf("save pending match for %s: %w", tx.ID, err)
		}
		summary.Suggested++
	}

	s.logger.Info("rule suggestion run complete",
		"tenant_id", tenantID,
		"evaluated", summary.Evaluated,
		"suggested", summary.Suggested,
		"skipped", summary.Skipped)

	return summary, nil
}

// Approve applies a pending match: the transaction gets the suggested
// category and the rule's usage counter is bumped. Approved is terminal.
func (s *Service) Approve(ctx context.Context, tenantID, matchID string) error {
	if tenantID == "" {
		return fmt.Errorf("not authenticated")
	}

	match, err := s.repo.GetPendingMatch(tenantID, matchID)
	if err != nil {
		return fmt.Errorf("load pending match: %w", err)
	}
	if match == nil {
		return fmt.Errorf("pending match %s not found", matchID)
	}

	ok, err := s.repo.ResolvePendingMatch(tenantID, matchID, storage.MatchStatusApproved)
	if err != nil {
		return fmt.Errorf("resolve match: %w", err)
	}
	if !ok {
		return fmt.Errorf("pending match %s already resolved", matchID)
	}

	if err := s.repo.ApplyCategory(tenantID, match.TransactionID, match.CategoryID); err != nil {
		return fmt.Errorf("apply category: %w", err)
	}
	if err := s.repo.IncrementRuleUse(tenantID, match.RuleID); err != nil {
		// Usage counters are bookkeeping; a failed bump is not worth
		// failing the approval for.
		s.logger.Warn("failed to bump rule usage", "rule_id", match.RuleID, "error", err)
	}
	return nil
}

// Reject discards a pending match. Rejected is terminal.
func (s *Service) Reject(ctx context.Context, tenantID, matchID string) error {
	if tenantID == "" {
		return fmt.Errorf("not authenticated")
	}

	ok, err := s.repo.ResolvePendingMatch(tenantID, matchID, storage.MatchStatusRejected)
	if err != nil {
		return fmt.Errorf("resolve match: %w", err)
	}
	if !ok {
		return fmt.Errorf("pending match %s not found or already resolved", matchID)
	}
	return nil
}
