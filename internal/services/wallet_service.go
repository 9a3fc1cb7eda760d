package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"goldshop/internal/repositories"
	"goldshop/pkg/utils"
)

// WalletServiceInterface is the balance ledger facade. Deduct and Credit
// are atomic per call; concurrent mutations on the same user serialize in
// the store.
type WalletServiceInterface interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64) (int64, error)
	// Deduct fails with *utils.InsufficientGoldError when the balance
	// does not cover amount; nothing is mutated in that case.
	Deduct(ctx context.Context, userID string, amount int64) (int64, error)
	EnsureWallet(ctx context.Context, userID string) error
}

type WalletService struct {
	walletRepo repositories.WalletRepositoryInterface
}

func NewWalletService(walletRepo repositories.WalletRepositoryInterface) WalletServiceInterface {
	return &WalletService{walletRepo: walletRepo}
}

func (w *WalletService) GetBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := w.walletRepo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrWalletNotFound
		}
		return 0, utils.ErrDatabaseError
	}
	return balance, nil
}

func (w *WalletService) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	balance, err := w.walletRepo.Credit(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrWalletNotFound
		}
		return 0, utils.ErrDatabaseError
	}
	return balance, nil
}

func (w *WalletService) Deduct(ctx context.Context, userID string, amount int64) (int64, error) {
	balance, ok, err := w.walletRepo.Debit(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrWalletNotFound
		}
		return 0, utils.ErrDatabaseError
	}
	if !ok {
		return balance, &utils.InsufficientGoldError{Required: amount, Balance: balance}
	}
	return balance, nil
}

func (w *WalletService) EnsureWallet(ctx context.Context, userID string) error {
	if err := w.walletRepo.EnsureWallet(ctx, userID); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}
