package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/ledger"
	"github.com/gatepay/platform/internal/repository"
)

// WalletService moves money between wallets and out to banks. Transfers are
// fee-free paired ledger rows; withdrawals debit immediately and stay pending
// until the external payout settles.
type WalletService struct {
	pool        repository.DB
	accounts    repository.AccountRepository
	entries     repository.LedgerRepository
	withdrawals repository.WithdrawalRepository
	outbox      repository.OutboxRepository
	engine      *ledger.Engine
	floor       int64
	ceiling     int64
	logger      *slog.Logger
}

// NewWalletService creates a WalletService. floor and ceiling bound a single
// transfer in cents.
func NewWalletService(
	pool repository.DB,
	accounts repository.AccountRepository,
	entries repository.LedgerRepository,
	withdrawals repository.WithdrawalRepository,
	outbox repository.OutboxRepository,
	engine *ledger.Engine,
	floor, ceiling int64,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		pool:        pool,
		accounts:    accounts,
		entries:     entries,
		withdrawals: withdrawals,
		outbox:      outbox,
		engine:      engine,
		floor:       floor,
		ceiling:     ceiling,
		logger:      logger,
	}
}

// TransferInput is a wallet-to-wallet transfer request.
type TransferInput struct {
	ToUsername string
	Amount     string
	Reference  string
}

// Transfer moves amount from the sender to the account behind ToUsername as
// one atomic pair of ledger rows, both tagged with the caller's reference.
// Both account rows are locked in deterministic order before any balance
// check, so concurrent opposite transfers cannot deadlock or double-spend.
func (s *WalletService) Transfer(ctx context.Context, fromID uuid.UUID, in TransferInput) (*domain.TransferResult, error) {
	if err := domain.ValidateUsername(in.ToUsername); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	amount, err := domain.ParsePositiveAmount(in.Amount)
	if err != nil {
		return nil, domain.ErrValidation("amount: " + err.Error())
	}
	if amount < s.floor || amount > s.ceiling {
		return nil, domain.ErrValidation("transfer amount must be between " +
			domain.FormatCents(s.floor) + " and " + domain.FormatCents(s.ceiling))
	}

	recipient, err := s.accounts.FindByUsername(ctx, s.pool, in.ToUsername)
	if err != nil {
		return nil, domain.ErrInternal("find recipient", err)
	}
	if recipient == nil || recipient.Status != domain.AccountActive {
		return nil, domain.ErrNotFound("account", in.ToUsername)
	}
	if recipient.ID == fromID {
		return nil, domain.ErrValidation("cannot transfer to yourself")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	sender, _, err := s.engine.LockAccountPair(ctx, tx, fromID, recipient.ID)
	if err != nil {
		return nil, err
	}
	if sender.Balance < amount {
		return nil, domain.ErrInsufficientBalance()
	}

	result, err := s.engine.RecordTransfer(ctx, tx,
		fromID, recipient.ID, amount,
		domain.SourceSend, domain.SourceReceive, nil, strPtr(in.Reference))
	if err != nil {
		return nil, domain.ErrTransient("record transfer", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("transfer completed",
		"from", fromID, "to", recipient.ID, "amount", amount)
	return result, nil
}

// WithdrawalInput is a bank payout request.
type WithdrawalInput struct {
	Amount      string
	BankName    string
	BankAccount string
}

// RequestWithdrawal debits the wallet immediately and records the payout
// request. The ledger row stays PENDING until the bank transfer is confirmed
// out of band; the balance hold is the debit itself.
func (s *WalletService) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, in WithdrawalInput) (*domain.Withdrawal, error) {
	amount, err := domain.ParsePositiveAmount(in.Amount)
	if err != nil {
		return nil, domain.ErrValidation("amount: " + err.Error())
	}
	if in.BankName == "" || in.BankAccount == "" {
		return nil, domain.ErrValidation("bank name and account are required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	account, err := s.engine.LockAccountForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance < amount {
		return nil, domain.ErrInsufficientBalance()
	}

	withdrawal, err := s.withdrawals.Insert(ctx, tx, &domain.Withdrawal{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		BankName:    in.BankName,
		BankAccount: in.BankAccount,
		Status:      domain.WithdrawalRequested,
	})
	if err != nil {
		return nil, domain.ErrTransient("create withdrawal", err)
	}

	ref := withdrawal.ID.String()
	if _, _, err := s.engine.PostEntry(ctx, tx, ledger.EntryParams{
		AccountID: accountID,
		Amount:    amount,
		Direction: domain.DirectionOut,
		Source:    domain.SourceSend,
		Status:    domain.EntryPending,
		Reference: &ref,
	}); err != nil {
		return nil, domain.ErrTransient("post withdrawal debit", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("withdrawal requested",
		"withdrawal_id", withdrawal.ID, "account_id", accountID, "amount", amount)
	return withdrawal, nil
}

// Balance returns the account's current balance with a formatted rendering.
func (s *WalletService) Balance(ctx context.Context, accountID uuid.UUID) (int64, string, error) {
	account, err := s.accounts.FindByID(ctx, s.pool, accountID)
	if err != nil {
		return 0, "", domain.ErrInternal("find account", err)
	}
	if account == nil {
		return 0, "", domain.ErrNotFound("account", accountID.String())
	}
	return account.Balance, domain.FormatCents(account.Balance), nil
}

// ListLedger returns the account's ledger history, newest first.
func (s *WalletService) ListLedger(ctx context.Context, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerEntry, error) {
	entries, err := s.entries.ListByAccount(ctx, s.pool, accountID, cursor, limit)
	if err != nil {
		return nil, domain.ErrInternal("list ledger", err)
	}
	return entries, nil
}

// ListWithdrawals returns the account's withdrawal requests, newest first.
func (s *WalletService) ListWithdrawals(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	ws, err := s.withdrawals.ListByAccount(ctx, s.pool, accountID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list withdrawals", err)
	}
	return ws, nil
}
