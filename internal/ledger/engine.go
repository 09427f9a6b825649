package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/repository"
)

// Engine provides the foundational ledger operations:
//  1. LockAccountForUpdate / LockAccountPair — row-level pessimistic locks
//  2. PostEntry — atomic balance update + append-only insert + outbox event
//  3. RecordTransfer — two mirrored PostEntry calls linked as a pair
//
// Every balance mutation in the system flows through PostEntry, so the
// account balance and its ledger snapshot can never diverge.
type Engine struct {
	accounts repository.AccountRepository
	entries  repository.LedgerRepository
	outbox   repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	accounts repository.AccountRepository,
	entries repository.LedgerRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		accounts: accounts,
		entries:  entries,
		outbox:   outbox,
	}
}

// EntryParams describes one directional balance change.
type EntryParams struct {
	AccountID uuid.UUID
	Amount    int64 // always positive; Direction carries the sign
	Direction domain.Direction
	Source    domain.Source
	Status    domain.EntryStatus
	PaymentID *uuid.UUID
	Reference *string
}

// LockAccountForUpdate acquires a row-level lock and returns the account.
// Must be called within a transaction.
func (e *Engine) LockAccountForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Account, error) {
	account, err := e.accounts.LockForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound("account", accountID.String())
	}
	return account, nil
}

// LockAccountPair locks both accounts in deterministic id order so two
// opposite-direction transfers between the same pair cannot deadlock.
func (e *Engine) LockAccountPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) (first, second *domain.Account, err error) {
	if a == b {
		return nil, nil, domain.ErrValidation("cannot transfer between an account and itself")
	}

	lockOrder := [2]uuid.UUID{a, b}
	if b.String() < a.String() {
		lockOrder = [2]uuid.UUID{b, a}
	}

	locked := map[uuid.UUID]*domain.Account{}
	for _, id := range lockOrder {
		acc, lockErr := e.LockAccountForUpdate(ctx, tx, id)
		if lockErr != nil {
			return nil, nil, lockErr
		}
		locked[id] = acc
	}
	return locked[a], locked[b], nil
}

// PostEntry atomically applies the balance delta and appends the ledger row
// carrying the post-mutation snapshot, plus the outbox event. All three steps
// run within the caller's transaction. Pending entries (withdrawals awaiting
// bank confirmation) still debit the balance immediately; the status only
// tracks external settlement.
func (e *Engine) PostEntry(ctx context.Context, tx pgx.Tx, params EntryParams) (*domain.LedgerEntry, *domain.Account, error) {
	if params.Amount <= 0 {
		return nil, nil, domain.ErrValidation("ledger amount must be positive")
	}

	delta := params.Amount
	if params.Direction == domain.DirectionOut {
		delta = -params.Amount
	}

	account, err := e.accounts.AdjustBalance(ctx, tx, params.AccountID, delta)
	if err != nil {
		return nil, nil, fmt.Errorf("adjust balance: %w", err)
	}
	if account == nil {
		return nil, nil, domain.ErrNotFound("account", params.AccountID.String())
	}
	if account.Balance < 0 {
		// The caller checked the balance under lock, so this only fires on a
		// bug; roll back loudly rather than persist a negative balance.
		return nil, nil, domain.ErrInsufficientBalance()
	}

	source := params.Source
	status := params.Status
	if status == "" {
		status = domain.EntrySuccess
	}

	entry, err := e.entries.Insert(ctx, tx, &domain.LedgerEntry{
		ID:        uuid.New(),
		AccountID: params.AccountID,
		Amount:    params.Amount,
		Direction: params.Direction,
		Source:    &source,
		Balance:   account.Balance,
		PaymentID: params.PaymentID,
		Status:    status,
		Reference: params.Reference,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewLedgerEntryPostedEvent(entry)); err != nil {
		return nil, nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return entry, account, nil
}

// RecordTransfer moves amount between two already-locked accounts as a linked
// pair of ledger rows: OUT on from, IN on to, each referencing the other.
// The caller must have verified the debit side's balance under lock.
func (e *Engine) RecordTransfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int64, outSource, inSource domain.Source, paymentID *uuid.UUID, reference *string) (*domain.TransferResult, error) {
	outEntry, fromAccount, err := e.PostEntry(ctx, tx, EntryParams{
		AccountID: from,
		Amount:    amount,
		Direction: domain.DirectionOut,
		Source:    outSource,
		PaymentID: paymentID,
		Reference: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer debit: %w", err)
	}

	inEntry, toAccount, err := e.PostEntry(ctx, tx, EntryParams{
		AccountID: to,
		Amount:    amount,
		Direction: domain.DirectionIn,
		Source:    inSource,
		PaymentID: paymentID,
		Reference: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer credit: %w", err)
	}

	// Back-fill the pair link; the credit row was inserted knowing its twin.
	if err := e.entries.LinkOpposite(ctx, tx, outEntry.ID, inEntry.ID); err != nil {
		return nil, err
	}
	if err := e.entries.LinkOpposite(ctx, tx, inEntry.ID, outEntry.ID); err != nil {
		return nil, err
	}
	outEntry.OppositeID = &inEntry.ID
	inEntry.OppositeID = &outEntry.ID

	return &domain.TransferResult{
		FromEntry: outEntry,
		ToEntry:   inEntry,
		From:      fromAccount,
		To:        toAccount,
	}, nil
}
