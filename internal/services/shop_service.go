package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"goldshop/internal/models/db_models"
	"goldshop/internal/models/response_models"
	"goldshop/internal/repositories"
	"goldshop/pkg/lock"
	"goldshop/pkg/utils"
)

// preLockTTL bounds how long a crashed purchase can hold its idempotency
// key before retries get through again.
const preLockTTL = 60 * time.Second

type ShopServiceInterface interface {
	ListProducts(ctx context.Context) ([]response_models.ProductResponse, error)
	ComputePrice(ctx context.Context, productID string) (*response_models.PriceQuoteResponse, error)

	// PurchaseProduct applies exactly one economic effect per
	// (user, product, idempotency key), no matter how many times or how
	// concurrently it is called with that key.
	PurchaseProduct(ctx context.Context, userID, productID, idempotencyKey string) (*response_models.PurchaseResponse, error)

	// BuyGoldPending records a gateway-backed gold top-up as pending;
	// the settlement service resolves it later.
	BuyGoldPending(ctx context.Context, userID, productID, paymentMethod string) (*response_models.SettleResponse, error)

	Refund(ctx context.Context, receiptCode, reason string) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]response_models.TransactionResponse, error)
	SearchTransactions(ctx context.Context, filter repositories.TransactionSearch) ([]response_models.TransactionResponse, error)
}

type ShopService struct {
	productRepo repositories.ProductRepositoryInterface
	txnRepo     repositories.TransactionRepositoryInterface
	wallet      WalletServiceInterface
	receipts    ReceiptServiceInterface
	preLock     lock.PreLocker
	localLock   *lock.KeyedMutex
	logger      *zap.SugaredLogger
}

func NewShopService(
	productRepo repositories.ProductRepositoryInterface,
	txnRepo repositories.TransactionRepositoryInterface,
	wallet WalletServiceInterface,
	receipts ReceiptServiceInterface,
	preLock lock.PreLocker,
	logger *zap.SugaredLogger,
) ShopServiceInterface {
	return &ShopService{
		productRepo: productRepo,
		txnRepo:     txnRepo,
		wallet:      wallet,
		receipts:    receipts,
		preLock:     preLock,
		localLock:   lock.NewKeyedMutex(),
		logger:      logger,
	}
}

func (s *ShopService) ListProducts(ctx context.Context) ([]response_models.ProductResponse, error) {
	products, err := s.productRepo.ListActive(ctx)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	out := make([]response_models.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, response_models.ProductResponse{
			ProductID:   p.ProductID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    string(p.ParsedExtra().Category),
		})
	}
	return out, nil
}

func (s *ShopService) ComputePrice(ctx context.Context, productID string) (*response_models.PriceQuoteResponse, error) {
	product, err := s.productRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if product == nil {
		return nil, utils.ErrInvalidProduct
	}

	quote := &response_models.PriceQuoteResponse{
		ProductID:  productID,
		BasePrice:  product.Price,
		FinalPrice: product.Price,
	}
	discounts, err := s.productRepo.ActiveDiscounts(ctx, productID, time.Now())
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	// First matching discount only; stacking is not supported.
	if len(discounts) > 0 {
		d := discounts[0]
		quote.FinalPrice = d.Apply(product.Price)
		quote.DiscountType = string(d.DiscountType)
		quote.DiscountValue = d.Value
		quote.DiscountApplied = true
	}
	return quote, nil
}

func (s *ShopService) PurchaseProduct(ctx context.Context, userID, productID, idempotencyKey string) (*response_models.PurchaseResponse, error) {
	// Fast idempotent replay: a recorded success for this key is the
	// answer, no locks and no mutation.
	if idempotencyKey != "" {
		existing, err := s.txnRepo.FindSuccessByIdemKey(ctx, userID, productID, idempotencyKey)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if existing != nil {
			return replayResponse(existing), nil
		}
	}

	// Distributed pre-lock repels concurrent duplicates across processes.
	// Losing it is not a failure: either the winner already finished (we
	// replay its result) or it is still running (caller retries later).
	if idempotencyKey != "" {
		preLockKey := fmt.Sprintf("shop:idemp:%s:%s:%s", userID, productID, idempotencyKey)
		if !s.preLock.Acquire(ctx, preLockKey, preLockTTL) {
			existing, err := s.txnRepo.FindSuccessByIdemKey(ctx, userID, productID, idempotencyKey)
			if err != nil {
				return nil, utils.ErrDatabaseError
			}
			if existing != nil {
				return replayResponse(existing), nil
			}
			return nil, utils.ErrPurchaseInProgress
		}
		defer s.preLock.Release(ctx, preLockKey)
	}

	// Process-local mutex: defense in depth for intra-process races the
	// pre-lock misses while Redis is unavailable.
	if idempotencyKey != "" {
		unlock := s.localLock.Lock(fmt.Sprintf("%s:%s:%s", userID, productID, idempotencyKey))
		defer unlock()

		// A racing request may have completed while we waited.
		existing, err := s.txnRepo.FindSuccessByIdemKey(ctx, userID, productID, idempotencyKey)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if existing != nil {
			return replayResponse(existing), nil
		}
	}

	return s.executePurchase(ctx, userID, productID, idempotencyKey)
}

// executePurchase runs the economic effect under whatever locks the caller
// holds. The unique constraint on (user, product, idempotency key) remains
// the ultimate arbiter: a conflicting insert means someone else won, and
// we replay their outcome after reversing our wallet mutation.
func (s *ShopService) executePurchase(ctx context.Context, userID, productID, idempotencyKey string) (*response_models.PurchaseResponse, error) {
	product, err := s.productRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if product == nil || !product.IsActive {
		return nil, utils.ErrInvalidProduct
	}
	extra := product.ParsedExtra()

	if extra.LimitOnce {
		// Any prior success blocks, regardless of idempotency key.
		purchased, err := s.txnRepo.HasSuccess(ctx, userID, productID)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if purchased {
			return nil, utils.ErrAlreadyPurchased
		}
	}

	if err := s.wallet.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}
	goldBefore, err := s.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		goldDelta int64
		goldAfter int64
		kind      db_models.TransactionKind
		txnExtra  db_models.TransactionExtra
	)
	switch extra.Category {
	case db_models.CategoryConversion:
		// External value already settled elsewhere; credit only.
		granted := extra.GoldOut
		if granted == 0 {
			granted = product.Price
		}
		goldAfter, err = s.wallet.Credit(ctx, userID, granted)
		if err != nil {
			return nil, err
		}
		goldDelta = granted
		kind = db_models.TxnKindGold
		txnExtra = db_models.TransactionExtra{
			Category:     db_models.CategoryConversion,
			GoldBefore:   goldBefore,
			GoldDelta:    goldDelta,
			GrantedGold:  granted,
			SourcePoints: extra.SourcePoints,
		}
	default:
		goldAfter, err = s.wallet.Deduct(ctx, userID, product.Price)
		if err != nil {
			return nil, err
		}
		goldDelta = -product.Price
		kind = db_models.TxnKindItem
		txnExtra = db_models.TransactionExtra{
			Category:   db_models.CategoryItem,
			GoldBefore: goldBefore,
			GoldDelta:  goldDelta,
			Effect:     extra.Effect,
			LimitOnce:  extra.LimitOnce,
		}
	}

	receiptCode := newReceiptCode()
	txn := &db_models.ShopTransaction{
		UserID:        userID,
		ProductID:     productID,
		Kind:          kind,
		Quantity:      1,
		UnitPrice:     product.Price,
		Amount:        product.Price,
		PaymentMethod: "gold",
		Status:        db_models.TxnStatusSuccess,
		ReceiptCode:   receiptCode,
	}
	if idempotencyKey != "" {
		txn.IdempotencyKey = &idempotencyKey
	}
	if extra.Category == db_models.CategoryConversion {
		hash, signature := s.receipts.Issue(ReceiptFacts{
			UserID:      userID,
			ProductID:   productID,
			Amount:      product.Price,
			Quantity:    1,
			Kind:        kind,
			ReceiptCode: receiptCode,
			Timestamp:   time.Now().Unix(),
		})
		txn.IntegrityHash = hash
		txn.ReceiptSignature = signature
	}
	txn.Extra = marshalExtra(txnExtra)

	if err := s.txnRepo.Create(ctx, txn); err != nil {
		// The ledger was mutated but nothing was persisted: reverse it
		// before doing anything else.
		s.compensate(ctx, userID, goldDelta)

		if errors.Is(err, gorm.ErrDuplicatedKey) && idempotencyKey != "" {
			// A concurrent writer won despite the locks. Their row is
			// the outcome.
			winner, findErr := s.txnRepo.FindSuccessByIdemKey(ctx, userID, productID, idempotencyKey)
			if findErr == nil && winner != nil {
				return replayResponse(winner), nil
			}
		}
		s.logger.Errorw("purchase persist failed", "user_id", userID, "product_id", productID, "err", err)
		return nil, utils.ErrDatabaseError
	}

	return &response_models.PurchaseResponse{
		ProductID:      productID,
		Category:       string(extra.Category),
		GoldBefore:     goldBefore,
		GoldDelta:      goldDelta,
		GoldAfter:      goldAfter,
		TransactionID:  txn.ID.String(),
		ReceiptCode:    receiptCode,
		IdempotencyKey: idempotencyKey,
	}, nil
}

func (s *ShopService) BuyGoldPending(ctx context.Context, userID, productID, paymentMethod string) (*response_models.SettleResponse, error) {
	product, err := s.productRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if product == nil || !product.IsActive {
		return nil, utils.ErrInvalidProduct
	}
	extra := product.ParsedExtra()
	if extra.Category != db_models.CategoryConversion {
		return nil, utils.ErrInvalidProduct
	}
	if paymentMethod == "" {
		paymentMethod = "card"
	}

	granted := extra.GoldOut
	if granted == 0 {
		granted = product.Price
	}
	txn := &db_models.ShopTransaction{
		UserID:        userID,
		ProductID:     productID,
		Kind:          db_models.TxnKindGold,
		Quantity:      1,
		UnitPrice:     product.Price,
		Amount:        granted,
		PaymentMethod: paymentMethod,
		Status:        db_models.TxnStatusPending,
		ReceiptCode:   newReceiptCode(),
	}
	txn.Extra = marshalExtra(db_models.TransactionExtra{
		Category:    db_models.CategoryConversion,
		GrantedGold: granted,
	})
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, utils.ErrDatabaseError
	}
	return &response_models.SettleResponse{
		ReceiptCode: txn.ReceiptCode,
		Status:      string(db_models.TxnStatusPending),
	}, nil
}

func (s *ShopService) Refund(ctx context.Context, receiptCode, reason string) error {
	txn, err := s.txnRepo.FindByReceipt(ctx, receiptCode)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if txn == nil {
		return utils.ErrTransactionNotFound
	}
	if txn.Status == db_models.TxnStatusRefunded {
		// Refunding twice is a no-op success.
		return nil
	}
	if txn.Status != db_models.TxnStatusSuccess {
		return utils.ErrNotRefundable
	}

	// Reverse the recorded wallet movement, not the sticker price: a
	// conversion may have credited gold_out rather than the price.
	granted := refundAmount(txn)
	if txn.Kind == db_models.TxnKindGold {
		if _, err := s.wallet.Deduct(ctx, txn.UserID, granted); err != nil {
			return err
		}
	} else {
		if _, err := s.wallet.Credit(ctx, txn.UserID, granted); err != nil {
			return err
		}
	}

	flipped, err := s.txnRepo.MarkRefunded(ctx, receiptCode, strings.TrimSpace(reason))
	if err != nil || !flipped {
		// Someone refunded concurrently after our read; undo our wallet
		// mutation so the reversal is applied once.
		if txn.Kind == db_models.TxnKindGold {
			_, _ = s.wallet.Credit(ctx, txn.UserID, granted)
		} else {
			_, _ = s.wallet.Deduct(ctx, txn.UserID, granted)
		}
		if err != nil {
			return utils.ErrDatabaseError
		}
		return nil
	}
	return nil
}

func (s *ShopService) ListTransactions(ctx context.Context, userID string, limit int) ([]response_models.TransactionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txns, err := s.txnRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return toTransactionResponses(txns, false), nil
}

func (s *ShopService) SearchTransactions(ctx context.Context, filter repositories.TransactionSearch) ([]response_models.TransactionResponse, error) {
	txns, err := s.txnRepo.Search(ctx, filter)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return toTransactionResponses(txns, true), nil
}

// compensate reverses a wallet mutation that could not be paired with a
// persisted transaction row. Failures here are logged, not returned: the
// caller is already on an error path.
func (s *ShopService) compensate(ctx context.Context, userID string, goldDelta int64) {
	var err error
	if goldDelta > 0 {
		_, err = s.wallet.Deduct(ctx, userID, goldDelta)
	} else if goldDelta < 0 {
		_, err = s.wallet.Credit(ctx, userID, -goldDelta)
	}
	if err != nil {
		s.logger.Errorw("wallet compensation failed", "user_id", userID, "gold_delta", goldDelta, "err", err)
	}
}

// replayResponse rebuilds the originally recorded outcome, so every caller
// racing on the same idempotency key converges on identical numbers.
func replayResponse(txn *db_models.ShopTransaction) *response_models.PurchaseResponse {
	var extra db_models.TransactionExtra
	if len(txn.Extra) > 0 {
		_ = json.Unmarshal(txn.Extra, &extra)
	}
	delta := extra.GoldDelta
	if delta == 0 {
		delta = extra.GrantedGold
	}
	key := ""
	if txn.IdempotencyKey != nil {
		key = *txn.IdempotencyKey
	}
	return &response_models.PurchaseResponse{
		ProductID:      txn.ProductID,
		Category:       string(extra.Category),
		GoldBefore:     extra.GoldBefore,
		GoldDelta:      delta,
		GoldAfter:      extra.GoldBefore + delta,
		TransactionID:  txn.ID.String(),
		ReceiptCode:    txn.ReceiptCode,
		IdempotencyKey: key,
		Idempotent:     true,
	}
}

func toTransactionResponses(txns []db_models.ShopTransaction, includeUser bool) []response_models.TransactionResponse {
	out := make([]response_models.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		r := response_models.TransactionResponse{
			ProductID:     t.ProductID,
			Kind:          string(t.Kind),
			Quantity:      t.Quantity,
			UnitPrice:     t.UnitPrice,
			Amount:        t.Amount,
			Status:        string(t.Status),
			PaymentMethod: t.PaymentMethod,
			ReceiptCode:   t.ReceiptCode,
			FailureReason: t.FailureReason,
			CreatedAt:     t.CreatedAt,
		}
		if includeUser {
			r.UserID = t.UserID
		}
		out = append(out, r)
	}
	return out
}

// refundAmount is the absolute gold moved by the original transaction,
// taken from the balance snapshot when one was recorded.
func refundAmount(txn *db_models.ShopTransaction) int64 {
	var extra db_models.TransactionExtra
	if len(txn.Extra) > 0 {
		_ = json.Unmarshal(txn.Extra, &extra)
	}
	if extra.GoldDelta > 0 {
		return extra.GoldDelta
	}
	if extra.GoldDelta < 0 {
		return -extra.GoldDelta
	}
	return txn.Amount
}

func newReceiptCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

func marshalExtra(extra db_models.TransactionExtra) datatypes.JSON {
	raw, _ := json.Marshal(extra)
	return datatypes.JSON(raw)
}
