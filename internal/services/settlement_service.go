package services

import (
	"context"

	"go.uber.org/zap"

	"goldshop/internal/models/db_models"
	"goldshop/internal/models/response_models"
	"goldshop/internal/repositories"
	"goldshop/pkg/utils"
)

// SettlementServiceInterface resolves pending gold transactions to their
// terminal state. Crediting happens exactly once: the conditional
// pending->success flip in the store is the guard, so a duplicate poll is
// a no-op even if two resolvers race.
type SettlementServiceInterface interface {
	// SettlePending polls the gateway for the transaction's fate and
	// applies it. Safe to call repeatedly.
	SettlePending(ctx context.Context, userID, receiptCode string) (*response_models.SettleResponse, error)

	// ForceSettle is the administrative override; it skips the gateway
	// and applies outcome directly to a pending row.
	ForceSettle(ctx context.Context, receiptCode string, outcome db_models.TransactionStatus) (*response_models.SettleResponse, error)
}

type SettlementService struct {
	txnRepo repositories.TransactionRepositoryInterface
	wallet  WalletServiceInterface
	gateway PaymentGateway
	logger  *zap.SugaredLogger
}

func NewSettlementService(
	txnRepo repositories.TransactionRepositoryInterface,
	wallet WalletServiceInterface,
	gateway PaymentGateway,
	logger *zap.SugaredLogger,
) SettlementServiceInterface {
	return &SettlementService{
		txnRepo: txnRepo,
		wallet:  wallet,
		gateway: gateway,
		logger:  logger,
	}
}

func (s *SettlementService) SettlePending(ctx context.Context, userID, receiptCode string) (*response_models.SettleResponse, error) {
	txn, err := s.txnRepo.FindByReceiptForUser(ctx, userID, receiptCode)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	if txn.Status != db_models.TxnStatusPending {
		// Already terminal; report it, change nothing.
		return &response_models.SettleResponse{ReceiptCode: receiptCode, Status: string(txn.Status)}, nil
	}
	if txn.Kind != db_models.TxnKindGold {
		return nil, utils.ErrNotSettleable
	}

	status, err := s.gateway.CheckStatus(ctx, receiptCode)
	if err != nil {
		s.logger.Warnw("gateway poll failed", "receipt_code", receiptCode, "err", err)
		return &response_models.SettleResponse{ReceiptCode: receiptCode, Status: string(db_models.TxnStatusPending)}, nil
	}

	switch status {
	case GatewayPending:
		return &response_models.SettleResponse{ReceiptCode: receiptCode, Status: string(db_models.TxnStatusPending)}, nil
	case GatewayFailed:
		return s.applyOutcome(ctx, txn, db_models.TxnStatusFailed, "Gateway declined on poll")
	default:
		return s.applyOutcome(ctx, txn, db_models.TxnStatusSuccess, "")
	}
}

func (s *SettlementService) ForceSettle(ctx context.Context, receiptCode string, outcome db_models.TransactionStatus) (*response_models.SettleResponse, error) {
	if outcome != db_models.TxnStatusSuccess && outcome != db_models.TxnStatusFailed {
		return nil, utils.ErrNotSettleable
	}
	txn, err := s.txnRepo.FindByReceipt(ctx, receiptCode)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	if txn.Status != db_models.TxnStatusPending {
		return &response_models.SettleResponse{ReceiptCode: receiptCode, Status: string(txn.Status)}, nil
	}
	if txn.Kind != db_models.TxnKindGold {
		return nil, utils.ErrNotSettleable
	}
	reason := ""
	if outcome == db_models.TxnStatusFailed {
		reason = "Force failed by admin"
	}
	return s.applyOutcome(ctx, txn, outcome, reason)
}

func (s *SettlementService) applyOutcome(ctx context.Context, txn *db_models.ShopTransaction, outcome db_models.TransactionStatus, reason string) (*response_models.SettleResponse, error) {
	flipped, err := s.txnRepo.MarkSettled(ctx, txn.ReceiptCode, outcome, reason)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !flipped {
		// Lost the settle race; report whatever the winner recorded.
		current, err := s.txnRepo.FindByReceipt(ctx, txn.ReceiptCode)
		if err != nil || current == nil {
			return nil, utils.ErrDatabaseError
		}
		return &response_models.SettleResponse{ReceiptCode: txn.ReceiptCode, Status: string(current.Status)}, nil
	}

	resp := &response_models.SettleResponse{ReceiptCode: txn.ReceiptCode, Status: string(outcome)}
	if outcome == db_models.TxnStatusSuccess {
		if err := s.wallet.EnsureWallet(ctx, txn.UserID); err != nil {
			return nil, err
		}
		balance, err := s.wallet.Credit(ctx, txn.UserID, txn.Amount)
		if err != nil {
			s.logger.Errorw("settlement credit failed", "receipt_code", txn.ReceiptCode, "err", err)
			return nil, err
		}
		resp.NewBalance = &balance
	}
	return resp, nil
}
