// internal/repository/store.go
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/database"
)

// Store is the unit of work over the payments tables. A Store returned to a
// WithTransaction callback routes every repository call through that
// transaction.
type Store struct {
	db *gorm.DB

	Purchases    *PurchaseRepository
	Wallets      *WalletRepository
	Transactions *TransactionRepository
	Settings     *SettingsRepository
	Posts        *PostRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Purchases:    &PurchaseRepository{db: db},
		Wallets:      &WalletRepository{db: db},
		Transactions: &TransactionRepository{db: db},
		Settings:     &SettingsRepository{db: db},
		Posts:        &PostRepository{db: db},
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
