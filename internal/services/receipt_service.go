package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"goldshop/internal/models/db_models"
)

// ReceiptFacts is the finalized fact set a conversion receipt commits to.
type ReceiptFacts struct {
	UserID      string
	ProductID   string
	Amount      int64
	Quantity    int
	Kind        db_models.TransactionKind
	ReceiptCode string
	Timestamp   int64
}

// ReceiptServiceInterface issues tamper-evident receipts for conversion
// purchases and verifies their signatures.
//
// Verification also accepts one rotated-out secret so keys can be swapped
// without invalidating receipts issued just before the rotation: producers
// sign with the active secret, verifiers keep accepting the previous one
// until outstanding receipts have been re-validated.
type ReceiptServiceInterface interface {
	Issue(facts ReceiptFacts) (integrityHash string, signature string)
	Verify(receiptCode, integrityHash, signature string) bool
}

func NewReceiptService(secret string, previousSecret string) ReceiptServiceInterface {
	svc := &ReceiptService{secret: []byte(secret)}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

type ReceiptService struct {
	secret         []byte
	previousSecret []byte
}

func (r *ReceiptService) Issue(facts ReceiptFacts) (string, string) {
	integrityHash := r.computeIntegrityHash(facts)
	return integrityHash, r.sign(facts.ReceiptCode, integrityHash)
}

func (r *ReceiptService) Verify(receiptCode, integrityHash, signature string) bool {
	base := signingBase(receiptCode, integrityHash)
	if hmac.Equal([]byte(signature), []byte(hmacHex(r.secret, base))) {
		return true
	}
	if r.previousSecret != nil && hmac.Equal([]byte(signature), []byte(hmacHex(r.previousSecret, base))) {
		return true
	}
	return false
}

func (r *ReceiptService) computeIntegrityHash(facts ReceiptFacts) string {
	raw := fmt.Sprintf("%s|%s|%d|%d|%s|%s|%d",
		facts.UserID, facts.ProductID, facts.Amount, facts.Quantity,
		facts.Kind, facts.ReceiptCode, facts.Timestamp)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (r *ReceiptService) sign(receiptCode, integrityHash string) string {
	return hmacHex(r.secret, signingBase(receiptCode, integrityHash))
}

func signingBase(receiptCode, integrityHash string) []byte {
	return []byte(receiptCode + "|" + integrityHash)
}

func hmacHex(secret, base []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(base)
	return hex.EncodeToString(mac.Sum(nil))
}
