package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"goldshop/internal/models/db_models"
	"goldshop/internal/repositories"
)

// newTestDB opens a private in-memory database capped at one connection,
// so concurrent test goroutines serialize in the driver the same way row
// locks would serialize them in postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&db_models.ShopProduct{},
		&db_models.ShopDiscount{},
		&db_models.ShopTransaction{},
		&db_models.ShopLimitedPackage{},
		&db_models.ShopPromoCode{},
		&db_models.Wallet{},
	))
	return db
}

// fakePreLock implements lock.PreLocker in memory. With nx=true it keeps
// real SET NX semantics; with nx=false every acquire succeeds, which
// pushes contention down to the local mutex and the unique constraint.
type fakePreLock struct {
	mu   sync.Mutex
	held map[string]bool
	nx   bool
}

func newFakePreLock(nx bool) *fakePreLock {
	return &fakePreLock{held: make(map[string]bool), nx: nx}
}

func (f *fakePreLock) Acquire(ctx context.Context, key string, ttl time.Duration) bool {
	if !f.nx {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return false
	}
	f.held[key] = true
	return true
}

func (f *fakePreLock) Release(ctx context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
}

type testEnv struct {
	db          *gorm.DB
	productRepo repositories.ProductRepositoryInterface
	txnRepo     repositories.TransactionRepositoryInterface
	packageRepo repositories.PackageRepositoryInterface
	promoRepo   repositories.PromoRepositoryInterface
	wallet      WalletServiceInterface
	receipts    ReceiptServiceInterface
	preLock     *fakePreLock
	shop        ShopServiceInterface
	limited     LimitedServiceInterface
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop().Sugar()

	env := &testEnv{
		db:          db,
		productRepo: repositories.NewProductRepository(db),
		txnRepo:     repositories.NewTransactionRepository(db),
		packageRepo: repositories.NewPackageRepository(db),
		promoRepo:   repositories.NewPromoRepository(db),
		preLock:     newFakePreLock(false),
	}
	env.wallet = NewWalletService(repositories.NewWalletRepository(db))
	env.receipts = NewReceiptService("test-secret", "")
	env.shop = NewShopService(env.productRepo, env.txnRepo, env.wallet, env.receipts, env.preLock, logger)
	env.limited = NewLimitedService(env.packageRepo, env.promoRepo, env.txnRepo, env.wallet, logger)
	return env
}

func (e *testEnv) fundWallet(t *testing.T, userID string, gold int64) {
	t.Helper()
	require.NoError(t, e.wallet.EnsureWallet(context.Background(), userID))
	if gold > 0 {
		_, err := e.wallet.Credit(context.Background(), userID, gold)
		require.NoError(t, err)
	}
}

func (e *testEnv) balance(t *testing.T, userID string) int64 {
	t.Helper()
	balance, err := e.wallet.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) seedProduct(t *testing.T, productID string, price int64, extra db_models.ProductExtra) {
	t.Helper()
	raw, err := json.Marshal(extra)
	require.NoError(t, err)
	require.NoError(t, e.db.Create(&db_models.ShopProduct{
		ProductID: productID,
		Name:      productID,
		Price:     price,
		IsActive:  true,
		Extra:     datatypes.JSON(raw),
	}).Error)
}

func (e *testEnv) seedPackage(t *testing.T, pkg db_models.ShopLimitedPackage) {
	t.Helper()
	require.NoError(t, e.db.Create(&pkg).Error)
}

func (e *testEnv) seedPromo(t *testing.T, promo db_models.ShopPromoCode) {
	t.Helper()
	require.NoError(t, e.db.Create(&promo).Error)
}

func intPtr(v int) *int { return &v }
