// Package reconcile wires the settlement matcher to storage: it finds
// candidate settlements for a bank deposit, applies the auto-reconcile
// policy, and handles manual overrides.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/domain/settlement"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// Service performs deposit/settlement reconciliation for one tenant at a
// time. All operations are synchronous and stateless; the only writes are
// single conditional updates on the settlements table.
type Service struct {
	repo   storage.Repository
	margin decimal.Decimal
	logger *slog.Logger
}

// NewService creates a reconciliation service. A nil logger falls back to
// slog.Default.
func NewService(repo storage.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		margin: settlement.DefaultMargin,
		logger: logger,
	}
}

// MatchResult is the outcome of a matcher run for one deposit.
type MatchResult struct {
	Matches                []settlement.Match `json:"matches"`
	AutoReconciled         bool               `json:"auto_reconciled"`
	ReconciledSettlementID string             `json:"reconciled_settlement_id,omitempty"`
}

// ManualResult is the outcome of a manual reconciliation.
type ManualResult struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Variance decimal.Decimal `json:"variance"`
}

// FindSettlementMatches scores unreconciled settlements in the trailing
// window against the deposit and auto-reconciles when exactly one candidate
// is within margin.
//
// An empty tenant ID is a soft failure: the caller gets an empty result,
// not an error, because the read path must never break the page.
func (s *Service) FindSettlementMatches(ctx context.Context, tenantID, depositID string) (*MatchResult, error) {
	if tenantID == "" {
		return &MatchResult{Matches: []settlement.Match{}}, nil
	}

	deposit, err := s.repo.GetDeposit(tenantID, depositID)
	if err != nil {
		return nil, fmt.Errorf("load deposit: %w", err)
	}
	if deposit == nil {
		return nil, fmt.Errorf("deposit %s not found", depositID)
	}

	from := deposit.Date.AddDate(0, 0, -settlement.WindowDays)
	candidates, err := s.repo.UnreconciledInWindow(tenantID, from, deposit.Date)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}

	scored := make([]settlement.Candidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, settlement.Candidate{
			ID:               c.ID,
			SettlementDate:   c.SettlementDate,
			NetAmount:        c.NetAmount,
			TransactionCount: c.TransactionCount,
		})
	}

	decision := settlement.Decide(scored, deposit.Amount, s.margin)
	result := &MatchResult{Matches: decision.Matches}

	if !decision.AutoReconcile {
		return result, nil
	}

	winner := decision.Winner
	updated, err := s.repo.MarkReconciled(tenantID, winner.ID, storage.ReconciliationLink{
		BankDepositID: deposit.ID,
		BankAmount:    deposit.Amount,
		Variance:      winner.Variance,
		Auto:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile settlement %s: %w", winner.ID, err)
	}
	if !updated {
		// Lost a race: someone reconciled it between the read and the
		// write. Surface the matches without claiming the auto action.
		s.logger.Warn("settlement reconciled concurrently",
			"settlement_id", winner.ID, "deposit_id", deposit.ID)
		return result, nil
	}

	s.logger.Info("auto-reconciled settlement",
		"settlement_id", winner.ID,
		"deposit_id", deposit.ID,
		"variance", winner.Variance.String())

	result.AutoReconciled = true
	result.ReconciledSettlementID = winner.ID
	return result, nil
}

// ManualReconcile links a settlement to a bank transaction on a human's
// say-so. The variance is recomputed against the stored net amount but the
// tolerance margin is deliberately not checked: manual overrides bypass it.
func (s *Service) ManualReconcile(ctx context.Context, tenantID, settlementID, bankTransactionID string, bankAmount decimal.Decimal) ManualResult {
	if tenantID == "" {
		return ManualResult{Success: false, Error: "not authenticated"}
	}

	st, err := s.repo.GetSettlement(tenantID, settlementID)
	if err != nil {
		return ManualResult{Success: false, Error: fmt.Sprintf("load settlement: %v", err)}
	}
	if st == nil {
		return ManualResult{Success: false, Error: "settlement not found"}
	}

	variance := st.NetAmount.Sub(bankAmount).Abs().Round(2)

	updated, err := s.repo.MarkReconciled(tenantID, settlementID, storage.ReconciliationLink{
		BankDepositID: bankTransactionID,
		BankAmount:    bankAmount,
		Variance:      variance,
		Auto:          false,
	})
	if err != nil {
		return ManualResult{Success: false, Error: fmt.Sprintf("update settlement: %v", err)}
	}
	if !updated {
		return ManualResult{Success: false, Error: "settlement already reconciled"}
	}

	s.logger.Info("manually reconciled settlement",
		"settlement_id", settlementID,
		"bank_transaction_id", bankTransactionID,
		"variance", variance.String())

	return ManualResult{Success: true, Variance: variance}
}
