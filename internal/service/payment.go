package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/ledger"
	"github.com/gatepay/platform/internal/repository"
	"github.com/gatepay/platform/internal/upload"
)

// PaymentService runs the peer-to-peer order flow and the escrow release
// shared by both payment types. A P2P order settles the buyer's debit
// immediately; the counterpart is only credited when the buyer confirms
// delivery and completes the payment.
type PaymentService struct {
	pool       repository.DB
	payments   repository.PaymentRepository
	accounts   repository.AccountRepository
	audit      repository.AuditRepository
	outbox     repository.OutboxRepository
	engine     *ledger.Engine
	uploader   upload.Uploader
	feeRate    domain.FeeRate
	providerID int64
	logger     *slog.Logger
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	pool repository.DB,
	payments repository.PaymentRepository,
	accounts repository.AccountRepository,
	audit repository.AuditRepository,
	outbox repository.OutboxRepository,
	engine *ledger.Engine,
	uploader upload.Uploader,
	feeRate domain.FeeRate,
	providerID int64,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		pool:       pool,
		payments:   payments,
		accounts:   accounts,
		audit:      audit,
		outbox:     outbox,
		engine:     engine,
		uploader:   uploader,
		feeRate:    feeRate,
		providerID: providerID,
		logger:     logger,
	}
}

// CreateOrderInput is a buyer's P2P purchase request.
type CreateOrderInput struct {
	SellerUsername string
	Amount         string
	ProductName    string
	ProductDesc    string
	ProductCat     string
	Refundable     bool
	IPAddress      string
}

// CreateOrder executes a P2P purchase: the buyer's wallet is debited for the
// full amount, the platform fee is recorded against the audit ledger, and
// the payment lands in SUCCESS with the escrow gate still closed. Everything
// happens in one transaction; any failure rolls the whole order back.
func (s *PaymentService) CreateOrder(ctx context.Context, buyerID uuid.UUID, in CreateOrderInput) (*domain.Payment, error) {
	if in.ProductName == "" {
		return nil, domain.ErrValidation("product name is required")
	}
	amount, err := domain.ParsePositiveAmount(in.Amount)
	if err != nil {
		return nil, domain.ErrValidation("amount: " + err.Error())
	}

	seller, err := s.accounts.FindByUsername(ctx, s.pool, in.SellerUsername)
	if err != nil {
		return nil, domain.ErrInternal("find seller", err)
	}
	if seller == nil || seller.Status != domain.AccountActive {
		return nil, domain.ErrNotFound("seller", in.SellerUsername)
	}
	if seller.ID == buyerID {
		return nil, domain.ErrValidation("cannot buy from yourself")
	}

	// Fee is fixed at order creation and recorded permanently in the audit
	// row; later settlement reads it back rather than recomputing.
	fee := s.feeRate.FeeFor(amount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	buyer, err := s.engine.LockAccountForUpdate(ctx, tx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer.Balance < amount {
		return nil, domain.ErrInsufficientBalance()
	}

	sellerID := seller.ID
	providerID := s.providerID
	payment, _, err := s.payments.Insert(ctx, tx, &domain.Payment{
		ID:         uuid.New(),
		Type:       domain.PaymentP2P,
		BuyerID:    buyerID,
		SellerID:   &sellerID,
		Amount:     amount,
		Status:     domain.PaymentSuccess,
		ProviderID: &providerID,
		IPAddress:  strPtr(in.IPAddress),
	})
	if err != nil {
		return nil, domain.ErrTransient("create order", err)
	}

	if err := s.payments.InsertDetails(ctx, tx, &domain.PaymentDetails{
		PaymentID:   payment.ID,
		ProductName: in.ProductName,
		ProductDesc: strPtr(in.ProductDesc),
		ProductCat:  strPtr(in.ProductCat),
		Amount:      amount,
		Refundable:  in.Refundable,
	}); err != nil {
		return nil, domain.ErrTransient("insert order details", err)
	}

	paymentID := payment.ID
	if _, _, err := s.engine.PostEntry(ctx, tx, ledger.EntryParams{
		AccountID: buyerID,
		Amount:    amount,
		Direction: domain.DirectionOut,
		Source:    domain.SourceOrder,
		PaymentID: &paymentID,
	}); err != nil {
		return nil, domain.ErrTransient("post order debit", err)
	}

	if fee > 0 {
		if _, err := s.audit.InsertFee(ctx, tx, payment.ID, s.feeRate.String(), fee, domain.DirectionIn); err != nil {
			return nil, domain.ErrTransient("record platform fee", err)
		}
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewPaymentEvent(payment, "created")); err != nil {
		return nil, domain.ErrTransient("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("p2p order created",
		"payment_id", payment.ID, "buyer_id", buyerID, "seller_id", seller.ID,
		"amount", amount, "fee", fee)
	return payment, nil
}

// CompletePayment opens the escrow gate: the buyer confirms delivery with
// proof images and the counterpart finally receives the money. The flip is
// one-way and buyer-only; a second confirm is a conflict, not a double
// credit.
func (s *PaymentService) CompletePayment(ctx context.Context, actorID uuid.UUID, paymentID uuid.UUID, proofs []upload.ProofImage) (*domain.Payment, error) {
	if err := upload.ValidateProofImages(proofs); err != nil {
		return nil, err
	}

	proofURLs := make([]string, 0, len(proofs))
	for _, p := range proofs {
		url, err := s.uploader.Store(ctx, p.Name, p.Data)
		if err != nil {
			return nil, domain.ErrInternal("store proof image", err)
		}
		proofURLs = append(proofURLs, url)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	payment, err := s.payments.LockForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, domain.ErrInternal("lock payment", err)
	}
	if payment == nil {
		return nil, domain.ErrNotFound("payment", paymentID.String())
	}
	if err := payment.CanComplete(actorID); err != nil {
		return nil, err
	}

	recipient, err := s.resolveRecipient(ctx, payment)
	if err != nil {
		return nil, err
	}

	if err := s.payments.MarkCompleted(ctx, tx, payment.ID); err != nil {
		return nil, err
	}

	if _, err := s.engine.LockAccountForUpdate(ctx, tx, recipient.ID); err != nil {
		return nil, err
	}
	// The platform fee stays a bookkeeping row in account_audit; the release
	// credits the counterpart the full amount so the entry pair nets to zero.
	pid := payment.ID
	if _, _, err := s.engine.PostEntry(ctx, tx, ledger.EntryParams{
		AccountID: recipient.ID,
		Amount:    payment.Amount,
		Direction: domain.DirectionIn,
		Source:    domain.SourceReceive,
		PaymentID: &pid,
	}); err != nil {
		return nil, domain.ErrTransient("post escrow release", err)
	}

	delivery, _ := json.Marshal(map[string]interface{}{
		"status": "confirmed",
		"proofs": proofURLs,
	})
	if err := s.payments.SetDeliveryStatus(ctx, tx, payment.ID, string(delivery)); err != nil {
		return nil, domain.ErrTransient("record delivery proof", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewPaymentEvent(payment, "completed")); err != nil {
		return nil, domain.ErrTransient("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	payment.IsCompleted = true
	s.logger.Info("payment completed",
		"payment_id", payment.ID, "recipient_id", recipient.ID, "amount", payment.Amount)
	return payment, nil
}

// PaymentListing annotates a payment with the viewer's side of it.
type PaymentListing struct {
	domain.Payment
	Side string `json:"side"`
}

// ListPayments returns the account's payment history, both sides merged,
// each annotated with whether the viewer bought or sold.
func (s *PaymentService) ListPayments(ctx context.Context, accountID uuid.UUID, limit int) ([]PaymentListing, error) {
	bought, err := s.payments.ListByBuyer(ctx, s.pool, accountID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list bought payments", err)
	}
	sold, err := s.payments.ListBySeller(ctx, s.pool, accountID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list sold payments", err)
	}

	listings := make([]PaymentListing, 0, len(bought)+len(sold))
	for _, p := range bought {
		listings = append(listings, PaymentListing{Payment: p, Side: "buyer"})
	}
	for _, p := range sold {
		listings = append(listings, PaymentListing{Payment: p, Side: "seller"})
	}
	return listings, nil
}

// GetPayment returns a payment with its details, visible only to its parties.
func (s *PaymentService) GetPayment(ctx context.Context, accountID uuid.UUID, paymentID uuid.UUID) (*domain.Payment, *domain.PaymentDetails, error) {
	payment, err := s.payments.FindByID(ctx, s.pool, paymentID)
	if err != nil {
		return nil, nil, domain.ErrInternal("find payment", err)
	}
	if payment == nil {
		return nil, nil, domain.ErrNotFound("payment", paymentID.String())
	}

	party := payment.BuyerID == accountID
	if !party && payment.SellerID != nil && *payment.SellerID == accountID {
		party = true
	}
	if !party {
		return nil, nil, domain.ErrForbidden("payment belongs to another account")
	}

	details, err := s.payments.FindDetails(ctx, s.pool, paymentID)
	if err != nil {
		return nil, nil, domain.ErrInternal("find payment details", err)
	}
	return payment, details, nil
}

// PlatformBalance returns the running platform fee total with a formatted
// rendering. Admin only.
func (s *PaymentService) PlatformBalance(ctx context.Context) (int64, string, error) {
	balance, err := s.audit.PlatformBalance(ctx, s.pool)
	if err != nil {
		return 0, "", domain.ErrInternal("read platform balance", err)
	}
	return balance, domain.FormatCents(balance), nil
}

// ListAudit returns fee journal rows created at or after since. Admin only.
func (s *PaymentService) ListAudit(ctx context.Context, since time.Time, limit int) ([]domain.AccountAudit, error) {
	rows, err := s.audit.ListSince(ctx, s.pool, since, limit)
	if err != nil {
		return nil, domain.ErrInternal("list fee audit", err)
	}
	return rows, nil
}

// resolveRecipient finds who the escrow release credits: the seller for P2P,
// the merchant-owning account for gateway payments.
func (s *PaymentService) resolveRecipient(ctx context.Context, payment *domain.Payment) (*domain.Account, error) {
	sellerID, merchantID := payment.CounterpartSource()
	if sellerID != nil {
		seller, err := s.accounts.FindByID(ctx, s.pool, *sellerID)
		if err != nil {
			return nil, domain.ErrInternal("find seller", err)
		}
		if seller == nil {
			return nil, domain.ErrNotFound("seller account", sellerID.String())
		}
		return seller, nil
	}
	if merchantID != nil {
		owner, err := s.accounts.FindByMerchantID(ctx, s.pool, *merchantID)
		if err != nil {
			return nil, domain.ErrInternal("find merchant account", err)
		}
		if owner == nil {
			return nil, domain.ErrNotFound("merchant account", "")
		}
		return owner, nil
	}
	return nil, domain.ErrInternal("payment has no counterpart", nil)
}
