package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goldshop/internal/models/db_models"
	"goldshop/internal/models/response_models"
	"goldshop/internal/repositories"
	"goldshop/pkg/utils"
)

func TestPurchaseConversionCreditsGoldOut(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 330000, db_models.ProductExtra{
		Category:     db_models.CategoryConversion,
		GoldOut:      300000,
		SourcePoints: 330000,
	})

	resp, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "")
	require.NoError(t, err)

	// gold_out wins over price for the credited amount.
	assert.Equal(t, int64(0), resp.GoldBefore)
	assert.Equal(t, int64(300000), resp.GoldDelta)
	assert.Equal(t, int64(300000), resp.GoldAfter)
	assert.Equal(t, "conversion", resp.Category)
	assert.Equal(t, int64(300000), env.balance(t, "user-1"))

	txn, err := env.txnRepo.FindByReceipt(context.Background(), resp.ReceiptCode)
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, db_models.TxnKindGold, txn.Kind)
	assert.NotEmpty(t, txn.IntegrityHash)
	assert.NotEmpty(t, txn.ReceiptSignature)
	assert.True(t, env.receipts.Verify(txn.ReceiptCode, txn.IntegrityHash, txn.ReceiptSignature))
}

func TestPurchaseConversionFallsBackToPrice(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-small", 5000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
	})

	resp, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-small", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), resp.GoldDelta)
}

func TestPurchaseItemDebitsPrice(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 1000)
	env.seedProduct(t, "comp-double", 700, db_models.ProductExtra{
		Category: db_models.CategoryItem,
		Effect:   "COMP_DOUBLE",
	})

	resp, err := env.shop.PurchaseProduct(context.Background(), "user-1", "comp-double", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), resp.GoldBefore)
	assert.Equal(t, int64(-700), resp.GoldDelta)
	assert.Equal(t, int64(300), resp.GoldAfter)
	assert.Equal(t, int64(300), env.balance(t, "user-1"))
}

func TestPurchaseItemInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 100)
	env.seedProduct(t, "comp-double", 700, db_models.ProductExtra{
		Category: db_models.CategoryItem,
	})

	_, err := env.shop.PurchaseProduct(context.Background(), "user-1", "comp-double", "")
	var short *utils.InsufficientGoldError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(700), short.Required)
	assert.Equal(t, int64(100), short.Balance)

	// No mutation and no transaction record on the validation failure.
	assert.Equal(t, int64(100), env.balance(t, "user-1"))
	txns, err := env.txnRepo.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestPurchaseInvalidProduct(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 1000)

	_, err := env.shop.PurchaseProduct(context.Background(), "user-1", "nope", "")
	assert.ErrorIs(t, err, utils.ErrInvalidProduct)

	env.seedProduct(t, "retired", 100, db_models.ProductExtra{Category: db_models.CategoryItem})
	require.NoError(t, env.db.Model(&db_models.ShopProduct{}).
		Where("product_id = ?", "retired").
		Update("is_active", false).Error)

	_, err = env.shop.PurchaseProduct(context.Background(), "user-1", "retired", "")
	assert.ErrorIs(t, err, utils.ErrInvalidProduct)
}

func TestPurchaseLimitOnce(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 5000)
	env.seedProduct(t, "vip-once", 1000, db_models.ProductExtra{
		Category:  db_models.CategoryItem,
		LimitOnce: true,
	})

	_, err := env.shop.PurchaseProduct(context.Background(), "user-1", "vip-once", "")
	require.NoError(t, err)

	// Second attempt fails even with a fresh idempotency key.
	_, err = env.shop.PurchaseProduct(context.Background(), "user-1", "vip-once", "fresh-key")
	assert.ErrorIs(t, err, utils.ErrAlreadyPurchased)
	assert.Equal(t, int64(4000), env.balance(t, "user-1"))
}

func TestPurchaseIdempotentReplaySequential(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  1000,
	})

	first, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "key-1")
	require.NoError(t, err)
	assert.False(t, first.Idempotent)

	second, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "key-1")
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.GoldAfter, second.GoldAfter)
	assert.Equal(t, first.GoldDelta, second.GoldDelta)
	assert.Equal(t, first.ReceiptCode, second.ReceiptCode)

	// Exactly one credit happened.
	assert.Equal(t, int64(1000), env.balance(t, "user-1"))

	// A different key is a different logical request.
	third, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "key-2")
	require.NoError(t, err)
	assert.False(t, third.Idempotent)
	assert.Equal(t, int64(2000), env.balance(t, "user-1"))
}

func TestPurchaseIdempotentReplayConcurrent(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  1000,
	})

	const callers = 8
	var wg sync.WaitGroup
	responses := make([]*response_models.PurchaseResponse, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "race-key")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(1000), responses[i].GoldAfter)
		assert.Equal(t, int64(1000), responses[i].GoldDelta)
	}
	// One ledger mutation total.
	assert.Equal(t, int64(1000), env.balance(t, "user-1"))

	var count int64
	require.NoError(t, env.db.Model(&db_models.ShopTransaction{}).
		Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPurchaseInProgressWhenPreLockHeld(t *testing.T) {
	env := newTestEnv(t)
	env.preLock.nx = true
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
	})

	// Simulate another process mid-purchase on the same key.
	held := env.preLock.Acquire(context.Background(), "shop:idemp:user-1:gold-pack:busy", 0)
	require.True(t, held)

	_, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "busy")
	assert.ErrorIs(t, err, utils.ErrPurchaseInProgress)
	assert.Equal(t, int64(0), env.balance(t, "user-1"))
}

func TestPurchaseReplaysResultWhenPreLockHeldButFinished(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  1000,
	})

	first, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "done-key")
	require.NoError(t, err)

	// The other holder finished but its pre-lock TTL has not expired yet.
	env.preLock.nx = true
	require.True(t, env.preLock.Acquire(context.Background(), "shop:idemp:user-1:gold-pack:done-key", 0))

	replay, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "done-key")
	require.NoError(t, err)
	assert.True(t, replay.Idempotent)
	assert.Equal(t, first.GoldAfter, replay.GoldAfter)
}

func TestPurchaseUniqueConstraintBackstop(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  1000,
	})

	// A second service instance with its own local mutex registry stands
	// in for another process whose lock layers both let the request
	// through; only the unique index separates it from a double credit.
	winner, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "contested")
	require.NoError(t, err)

	other := NewShopService(env.productRepo, env.txnRepo, env.wallet, env.receipts, newFakePreLock(false), zap.NewNop().Sugar()).(*ShopService)
	replay, err := other.executePurchase(context.Background(), "user-1", "gold-pack", "contested")
	require.NoError(t, err)
	assert.True(t, replay.Idempotent)
	assert.Equal(t, winner.GoldAfter, replay.GoldAfter)
	assert.Equal(t, winner.ReceiptCode, replay.ReceiptCode)

	// The loser's credit was compensated before the replay.
	assert.Equal(t, int64(1000), env.balance(t, "user-1"))
}

func TestBuyGoldPendingRecordsPendingTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 10000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  12000,
	})

	resp, err := env.shop.BuyGoldPending(context.Background(), "user-1", "gold-pack", "card")
	require.NoError(t, err)
	assert.Equal(t, string(db_models.TxnStatusPending), resp.Status)

	txn, err := env.txnRepo.FindByReceipt(context.Background(), resp.ReceiptCode)
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, db_models.TxnStatusPending, txn.Status)
	assert.Equal(t, int64(12000), txn.Amount)
	// Nothing is credited until settlement.
	assert.Equal(t, int64(0), env.balance(t, "user-1"))
}

func TestBuyGoldPendingRejectsItemProducts(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "comp-double", 700, db_models.ProductExtra{Category: db_models.CategoryItem})

	_, err := env.shop.BuyGoldPending(context.Background(), "user-1", "comp-double", "card")
	assert.ErrorIs(t, err, utils.ErrInvalidProduct)
}

func TestRefundGoldAndIdempotence(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  1000,
	})

	resp, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "")
	require.NoError(t, err)
	require.Equal(t, int64(1000), env.balance(t, "user-1"))

	require.NoError(t, env.shop.Refund(context.Background(), resp.ReceiptCode, "chargeback"))
	assert.Equal(t, int64(0), env.balance(t, "user-1"))

	txn, err := env.txnRepo.FindByReceipt(context.Background(), resp.ReceiptCode)
	require.NoError(t, err)
	assert.Equal(t, db_models.TxnStatusRefunded, txn.Status)
	assert.Equal(t, "chargeback", txn.FailureReason)

	// Refunding again is a no-op success that moves no gold.
	require.NoError(t, env.shop.Refund(context.Background(), resp.ReceiptCode, "again"))
	assert.Equal(t, int64(0), env.balance(t, "user-1"))
}

func TestRefundItemCreditsBack(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 1000)
	env.seedProduct(t, "comp-double", 700, db_models.ProductExtra{Category: db_models.CategoryItem})

	resp, err := env.shop.PurchaseProduct(context.Background(), "user-1", "comp-double", "")
	require.NoError(t, err)
	require.Equal(t, int64(300), env.balance(t, "user-1"))

	require.NoError(t, env.shop.Refund(context.Background(), resp.ReceiptCode, ""))
	assert.Equal(t, int64(1000), env.balance(t, "user-1"))
}

func TestRefundGoldInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 0)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{
		Category: db_models.CategoryConversion,
		GoldOut:  1000,
	})
	env.seedProduct(t, "spender", 900, db_models.ProductExtra{Category: db_models.CategoryItem})

	resp, err := env.shop.PurchaseProduct(context.Background(), "user-1", "gold-pack", "")
	require.NoError(t, err)
	_, err = env.shop.PurchaseProduct(context.Background(), "user-1", "spender", "")
	require.NoError(t, err)

	// The user already spent the credited gold; the reversal cannot land.
	err = env.shop.Refund(context.Background(), resp.ReceiptCode, "")
	var short *utils.InsufficientGoldError
	require.ErrorAs(t, err, &short)

	txn, err := env.txnRepo.FindByReceipt(context.Background(), resp.ReceiptCode)
	require.NoError(t, err)
	assert.Equal(t, db_models.TxnStatusSuccess, txn.Status)
}

func TestRefundUnknownReceipt(t *testing.T) {
	env := newTestEnv(t)
	err := env.shop.Refund(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, utils.ErrTransactionNotFound))
}

func TestListAndSearchTransactions(t *testing.T) {
	env := newTestEnv(t)
	env.fundWallet(t, "user-1", 5000)
	env.fundWallet(t, "user-2", 5000)
	env.seedProduct(t, "comp-double", 700, db_models.ProductExtra{Category: db_models.CategoryItem})

	_, err := env.shop.PurchaseProduct(context.Background(), "user-1", "comp-double", "")
	require.NoError(t, err)
	_, err = env.shop.PurchaseProduct(context.Background(), "user-1", "comp-double", "")
	require.NoError(t, err)
	_, err = env.shop.PurchaseProduct(context.Background(), "user-2", "comp-double", "")
	require.NoError(t, err)

	mine, err := env.shop.ListTransactions(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, txn := range mine {
		// The per-user listing never leaks other users and omits UserID.
		assert.Empty(t, txn.UserID)
		assert.Equal(t, "comp-double", txn.ProductID)
	}

	all, err := env.shop.SearchTransactions(context.Background(), repositories.TransactionSearch{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	theirs, err := env.shop.SearchTransactions(context.Background(), repositories.TransactionSearch{UserID: "user-2"})
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "user-2", theirs[0].UserID)

	none, err := env.shop.SearchTransactions(context.Background(), repositories.TransactionSearch{Status: db_models.TxnStatusPending})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestComputePriceAppliesFirstDiscountOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "gold-pack", 1000, db_models.ProductExtra{Category: db_models.CategoryConversion})
	percent := db_models.ShopDiscount{
		ProductID:    "gold-pack",
		DiscountType: db_models.DiscountPercent,
		Value:        20,
		IsActive:     true,
	}
	flat := db_models.ShopDiscount{
		ProductID:    "gold-pack",
		DiscountType: db_models.DiscountFlat,
		Value:        500,
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(&percent).Error)
	require.NoError(t, env.db.Create(&flat).Error)
	// Oldest active discount wins; pin creation order explicitly since
	// both inserts land within the same second.
	require.NoError(t, env.db.Model(&db_models.ShopDiscount{}).
		Where("id = ?", percent.ID).Update("created_at", 100).Error)
	require.NoError(t, env.db.Model(&db_models.ShopDiscount{}).
		Where("id = ?", flat.ID).Update("created_at", 200).Error)

	quote, err := env.shop.ComputePrice(context.Background(), "gold-pack")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.BasePrice)
	// Only the first discount applies; no stacking.
	assert.Equal(t, int64(800), quote.FinalPrice)
	assert.True(t, quote.DiscountApplied)
}
