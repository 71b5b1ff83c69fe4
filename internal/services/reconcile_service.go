// internal/services/reconcile_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
)

const reconcileBatchSize = 200

type WalletDiscrepancy struct {
	WalletID    uuid.UUID `json:"wallet_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Balance     int64     `json:"balance"`
	LedgerTotal int64     `json:"ledger_total"`
}

type PurchaseDiscrepancy struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	Amount     int64     `json:"amount"`
	Credited   int64     `json:"credited"`
}

// ReconciliationReport compares cached balances and completed sales with the
// transaction log.
type ReconciliationReport struct {
	GeneratedAt           time.Time             `json:"generated_at"`
	Wallets               int                   `json:"wallets"`
	CompletedPurchases    int64                 `json:"completed_purchases"`
	GrossVolume           int64                 `json:"gross_volume"`
	CreatorRevenue        int64                 `json:"creator_revenue"`
	PlatformRevenue       int64                 `json:"platform_revenue"`
	WalletDiscrepancies   []WalletDiscrepancy   `json:"wallet_discrepancies"`
	PurchaseDiscrepancies []PurchaseDiscrepancy `json:"purchase_discrepancies"`
}

func (r *ReconciliationReport) Balanced() bool {
	return len(r.WalletDiscrepancies) == 0 &&
		len(r.PurchaseDiscrepancies) == 0 &&
		r.CreatorRevenue+r.PlatformRevenue == r.GrossVolume
}

type ReconcileService struct {
	store *repository.Store
}

func NewReconcileService(store *repository.Store) *ReconcileService {
	return &ReconcileService{store: store}
}

func (s *ReconcileService) Run(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		GeneratedAt:           time.Now().UTC(),
		WalletDiscrepancies:   []WalletDiscrepancy{},
		PurchaseDiscrepancies: []PurchaseDiscrepancy{},
	}

	if err := s.checkWallets(ctx, report); err != nil {
		return nil, err
	}
	if err := s.checkPurchases(ctx, report); err != nil {
		return nil, err
	}

	var err error
	if report.CreatorRevenue, err = s.store.Transactions.SumByType(ctx, models.TransactionTypeEarning); err != nil {
		return nil, fmt.Errorf("failed to total earnings: %w", err)
	}
	if report.PlatformRevenue, err = s.store.Transactions.SumByType(ctx, models.TransactionTypePlatformFee); err != nil {
		return nil, fmt.Errorf("failed to total platform fees: %w", err)
	}

	entry := logrus.WithFields(logrus.Fields{
		"wallets":             report.Wallets,
		"completed_purchases": report.CompletedPurchases,
		"gross_volume":        report.GrossVolume,
		"wallet_mismatches":   len(report.WalletDiscrepancies),
		"purchase_mismatches": len(report.PurchaseDiscrepancies),
	})
	if report.Balanced() {
		entry.Info("Ledger reconciled")
	} else {
		entry.Error("Ledger reconciliation found discrepancies")
	}
	return report, nil
}

func (s *ReconcileService) checkWallets(ctx context.Context, report *ReconciliationReport) error {
	wallets, err := s.store.Wallets.List(ctx)
	if err != nil {
		return err
	}
	sums, err := s.store.Transactions.SumByWallet(ctx)
	if err != nil {
		return err
	}

	report.Wallets = len(wallets)
	for _, wallet := range wallets {
		total := sums[wallet.ID].Total
		if total != wallet.Balance {
			report.WalletDiscrepancies = append(report.WalletDiscrepancies, WalletDiscrepancy{
				WalletID:    wallet.ID,
				OwnerID:     wallet.OwnerID,
				Balance:     wallet.Balance,
				LedgerTotal: total,
			})
		}
	}
	return nil
}

func (s *ReconcileService) checkPurchases(ctx context.Context, report *ReconciliationReport) error {
	totals, err := s.store.Purchases.CompletedTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to total purchases: %w", err)
	}
	report.CompletedPurchases = totals.Count
	report.GrossVolume = totals.Amount

	return s.store.Purchases.FindCompletedInBatches(ctx, reconcileBatchSize, func(batch []models.Purchase) error {
		ids := make([]uuid.UUID, len(batch))
		for i, p := range batch {
			ids[i] = p.ID
		}

		credited, err := s.store.Transactions.SumByReferences(ctx, ids)
		if err != nil {
			return err
		}

		for _, p := range batch {
			if credited[p.ID] != p.Amount {
				report.PurchaseDiscrepancies = append(report.PurchaseDiscrepancies, PurchaseDiscrepancy{
					PurchaseID: p.ID,
					Amount:     p.Amount,
					Credited:   credited[p.ID],
				})
			}
		}
		return nil
	})
}
