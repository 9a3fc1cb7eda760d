package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"goldshop/internal/models/db_models"
	"goldshop/internal/models/response_models"
	"goldshop/internal/repositories"
	"goldshop/pkg/utils"
)

type LimitedServiceInterface interface {
	ListAvailable(ctx context.Context) ([]response_models.LimitedPackageResponse, error)

	// PurchaseLimited never oversells and never over-redeems a promo:
	// both counters move through conditional updates, and losing either
	// race rolls the whole purchase back.
	PurchaseLimited(ctx context.Context, userID, packageID, promoCode string) (*response_models.LimitedPurchaseResponse, error)
}

type LimitedService struct {
	packageRepo repositories.PackageRepositoryInterface
	promoRepo   repositories.PromoRepositoryInterface
	txnRepo     repositories.TransactionRepositoryInterface
	wallet      WalletServiceInterface
	logger      *zap.SugaredLogger
}

func NewLimitedService(
	packageRepo repositories.PackageRepositoryInterface,
	promoRepo repositories.PromoRepositoryInterface,
	txnRepo repositories.TransactionRepositoryInterface,
	wallet WalletServiceInterface,
	logger *zap.SugaredLogger,
) LimitedServiceInterface {
	return &LimitedService{
		packageRepo: packageRepo,
		promoRepo:   promoRepo,
		txnRepo:     txnRepo,
		wallet:      wallet,
		logger:      logger,
	}
}

func (l *LimitedService) ListAvailable(ctx context.Context) ([]response_models.LimitedPackageResponse, error) {
	packages, err := l.packageRepo.ListAvailable(ctx, time.Now())
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	out := make([]response_models.LimitedPackageResponse, 0, len(packages))
	for _, p := range packages {
		out = append(out, response_models.LimitedPackageResponse{
			PackageID:      p.PackageID,
			Name:           p.Name,
			Description:    p.Description,
			Price:          p.Price,
			StockRemaining: p.StockRemaining,
			PerUserLimit:   p.PerUserLimit,
			StartsAt:       p.StartsAt,
			EndsAt:         p.EndsAt,
		})
	}
	return out, nil
}

func (l *LimitedService) PurchaseLimited(ctx context.Context, userID, packageID, promoCode string) (*response_models.LimitedPurchaseResponse, error) {
	now := time.Now()

	pkg, err := l.packageRepo.FindByPackageID(ctx, packageID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if pkg == nil || !pkg.IsActive || pkg.EmergencyDisabled || !pkg.InWindow(now) {
		return nil, utils.ErrPackageUnavailable
	}
	if pkg.StockRemaining != nil && *pkg.StockRemaining <= 0 {
		return nil, utils.ErrOutOfStock
	}
	if pkg.PerUserLimit != nil {
		count, err := l.txnRepo.CountSuccessPurchases(ctx, userID, packageID)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if count >= int64(*pkg.PerUserLimit) {
			return nil, utils.ErrPerUserLimit
		}
	}

	price := pkg.Price
	promoApplied := false
	if promoCode != "" {
		promo, err := l.promoRepo.FindActiveByCode(ctx, promoCode)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if promo == nil || !promo.AppliesTo(packageID, now) {
			return nil, utils.ErrInvalidPromo
		}
		discounted := promo.Discounted(price)
		if discounted >= price {
			// A code that changes nothing is treated as invalid rather
			// than silently charged at full price.
			return nil, utils.ErrInvalidPromo
		}
		price = discounted
		promoApplied = true
	}

	if err := l.wallet.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}
	goldBefore, err := l.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	newBalance, err := l.wallet.Deduct(ctx, userID, price)
	if err != nil {
		return nil, err
	}

	// Conditional stock decrement: zero rows affected means a concurrent
	// buyer took the last unit after our precondition read.
	if pkg.StockRemaining != nil {
		decremented, err := l.packageRepo.DecrementStock(ctx, packageID)
		if err != nil || !decremented {
			l.refund(ctx, userID, price)
			if err != nil {
				return nil, utils.ErrDatabaseError
			}
			return nil, utils.ErrOutOfStock
		}
	}

	// Symmetric conditional increment for the promo cap.
	if promoApplied {
		incremented, err := l.promoRepo.IncrementUsage(ctx, promoCode)
		if err != nil || !incremented {
			l.rollbackStock(ctx, pkg)
			l.refund(ctx, userID, price)
			if err != nil {
				return nil, utils.ErrDatabaseError
			}
			return nil, utils.ErrInvalidPromo
		}
	}

	txn := &db_models.ShopTransaction{
		UserID:        userID,
		ProductID:     packageID,
		Kind:          db_models.TxnKindItem,
		Quantity:      1,
		UnitPrice:     price,
		Amount:        price,
		PaymentMethod: "gold",
		Status:        db_models.TxnStatusSuccess,
		ReceiptCode:   newReceiptCode(),
	}
	txn.Extra = marshalExtra(db_models.TransactionExtra{
		Category:   db_models.CategoryItem,
		GoldBefore: goldBefore,
		GoldDelta:  -price,
		Limited:    true,
		PromoCode:  promoCode,
	})
	if err := l.txnRepo.Create(ctx, txn); err != nil {
		if promoApplied {
			if relErr := l.promoRepo.ReleaseUsage(ctx, promoCode); relErr != nil {
				l.logger.Errorw("promo usage rollback failed", "code", promoCode, "err", relErr)
			}
		}
		l.rollbackStock(ctx, pkg)
		l.refund(ctx, userID, price)
		return nil, utils.ErrDatabaseError
	}

	// Contents are delivered only after every counter has committed.
	resp := &response_models.LimitedPurchaseResponse{
		PackageID:   packageID,
		PricePaid:   price,
		NewBalance:  newBalance,
		ReceiptCode: txn.ReceiptCode,
	}
	contents := pkg.ParsedContents()
	if contents.BonusGold > 0 {
		balance, err := l.wallet.Credit(ctx, userID, contents.BonusGold)
		if err != nil {
			l.logger.Errorw("bonus gold delivery failed", "user_id", userID, "package_id", packageID, "err", err)
		} else {
			resp.NewBalance = balance
			resp.BonusGold = contents.BonusGold
		}
	}
	return resp, nil
}

func (l *LimitedService) refund(ctx context.Context, userID string, amount int64) {
	if _, err := l.wallet.Credit(ctx, userID, amount); err != nil {
		l.logger.Errorw("debit rollback failed", "user_id", userID, "amount", amount, "err", err)
	}
}

func (l *LimitedService) rollbackStock(ctx context.Context, pkg *db_models.ShopLimitedPackage) {
	if pkg.StockRemaining == nil {
		return
	}
	if err := l.packageRepo.RestoreStock(ctx, pkg.PackageID); err != nil {
		l.logger.Errorw("stock rollback failed", "package_id", pkg.PackageID, "err", err)
	}
}
