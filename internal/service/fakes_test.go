package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/repository"
)

// fakeStore is the shared in-memory backing for the fake repositories. The
// repositories ignore the db handle they are passed and read and write here
// directly, so service flows can run end to end without Postgres.
type fakeStore struct {
	accounts     map[uuid.UUID]*domain.Account
	entries      []*domain.LedgerEntry
	payments     map[uuid.UUID]*domain.Payment
	details      map[uuid.UUID]*domain.PaymentDetails
	sessions     map[int64]*domain.PaymentSession
	nextSession  int64
	withdrawals  map[uuid.UUID]*domain.Withdrawal
	merchants    map[int64]*domain.Merchant
	providers    map[int64]*domain.PaymentProvider
	audits       []domain.AccountAudit
	auditBalance int64
	outbox       []domain.OutboxDraft
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:    map[uuid.UUID]*domain.Account{},
		payments:    map[uuid.UUID]*domain.Payment{},
		details:     map[uuid.UUID]*domain.PaymentDetails{},
		sessions:    map[int64]*domain.PaymentSession{},
		withdrawals: map[uuid.UUID]*domain.Withdrawal{},
		merchants:   map[int64]*domain.Merchant{},
		providers:   map[int64]*domain.PaymentProvider{},
	}
}

func (s *fakeStore) addAccount(a *domain.Account) *domain.Account {
	cp := *a
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.Role == "" {
		cp.Role = domain.RoleUser
	}
	if cp.Status == "" {
		cp.Status = domain.AccountActive
	}
	s.accounts[cp.ID] = &cp
	return &cp
}

func (s *fakeStore) entriesFor(accountID uuid.UUID) []*domain.LedgerEntry {
	var out []*domain.LedgerEntry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// ledgerSum folds an account's rows back into a balance, the check that the
// snapshot column must always agree with.
func (s *fakeStore) ledgerSum(accountID uuid.UUID) int64 {
	var sum int64
	for _, e := range s.entriesFor(accountID) {
		if e.Direction == domain.DirectionIn {
			sum += e.Amount
		} else {
			sum -= e.Amount
		}
	}
	return sum
}

// fakeDB satisfies repository.DB. The fake repositories never touch the
// handle, so the query methods only need to exist.
type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return noRow{}
}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

type noRow struct{}

func (noRow) Scan(...interface{}) error { return pgx.ErrNoRows }

// fakeTx satisfies pgx.Tx for the services' begin/commit/rollback bracket.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (t *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row { return noRow{} }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakeAccountRepo struct{ store *fakeStore }

func (r *fakeAccountRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Account, error) {
	return r.store.accounts[id], nil
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.Account, error) {
	for _, a := range r.store.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByUsername(_ context.Context, _ repository.DBTX, username string) (*domain.Account, error) {
	for _, a := range r.store.accounts {
		if a.Username != nil && *a.Username == username {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByMerchantID(_ context.Context, _ repository.DBTX, merchantID int64) (*domain.Account, error) {
	for _, a := range r.store.accounts {
		if a.MerchantID != nil && *a.MerchantID == merchantID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) LockForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.store.accounts[id], nil
}

func (r *fakeAccountRepo) Create(_ context.Context, _ repository.DBTX, account *domain.Account) error {
	for _, a := range r.store.accounts {
		if a.Email == account.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	cp := *account
	r.store.accounts[cp.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) AdjustBalance(_ context.Context, _ pgx.Tx, id uuid.UUID, delta int64) (*domain.Account, error) {
	a := r.store.accounts[id]
	if a == nil {
		return nil, nil
	}
	a.Balance += delta
	cp := *a
	return &cp, nil
}

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) Insert(_ context.Context, _ repository.DBTX, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	cp := *entry
	cp.CreatedAt = time.Now()
	r.store.entries = append(r.store.entries, &cp)
	return &cp, nil
}

func (r *fakeLedgerRepo) LinkOpposite(_ context.Context, _ repository.DBTX, id, oppositeID uuid.UUID) error {
	for _, e := range r.store.entries {
		if e.ID == id {
			opp := oppositeID
			e.OppositeID = &opp
			return nil
		}
	}
	return fmt.Errorf("entry not found")
}

func (r *fakeLedgerRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, status domain.EntryStatus) error {
	for _, e := range r.store.entries {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return fmt.Errorf("entry not found")
}

func (r *fakeLedgerRepo) ListByAccount(_ context.Context, _ repository.DBTX, accountID uuid.UUID, _ *string, limit int) ([]domain.LedgerEntry, error) {
	rows := r.store.entriesFor(accountID)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, e := range rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, *e)
	}
	return out, nil
}

type fakePaymentRepo struct{ store *fakeStore }

func (r *fakePaymentRepo) Insert(_ context.Context, _ repository.DBTX, p *domain.Payment) (*domain.Payment, bool, error) {
	if p.SessionID != nil {
		for _, existing := range r.store.payments {
			if existing.SessionID != nil && *existing.SessionID == *p.SessionID {
				cp := *existing
				return &cp, false, nil
			}
		}
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.store.payments[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (r *fakePaymentRepo) InsertDetails(_ context.Context, _ repository.DBTX, d *domain.PaymentDetails) error {
	cp := *d
	r.store.details[cp.PaymentID] = &cp
	return nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Payment, error) {
	return r.store.payments[id], nil
}

func (r *fakePaymentRepo) FindBySessionID(_ context.Context, _ repository.DBTX, sessionID int64) (*domain.Payment, error) {
	for _, p := range r.store.payments {
		if p.SessionID != nil && *p.SessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) FindDetails(_ context.Context, _ repository.DBTX, paymentID uuid.UUID) (*domain.PaymentDetails, error) {
	return r.store.details[paymentID], nil
}

func (r *fakePaymentRepo) LockForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	return r.store.payments[id], nil
}

func (r *fakePaymentRepo) MarkCompleted(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	p := r.store.payments[id]
	if p == nil || p.IsCompleted || p.Status != domain.PaymentSuccess {
		return domain.ErrConflict("payment is not in a completable state")
	}
	p.IsCompleted = true
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakePaymentRepo) SetDeliveryStatus(_ context.Context, _ repository.DBTX, paymentID uuid.UUID, status string) error {
	d := r.store.details[paymentID]
	if d == nil {
		return fmt.Errorf("details not found")
	}
	d.DeliveryStatus = &status
	return nil
}

func (r *fakePaymentRepo) ListByBuyer(_ context.Context, _ repository.DBTX, accountID uuid.UUID, limit int) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.store.payments {
		if p.BuyerID == accountID {
			out = append(out, *p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListBySeller(_ context.Context, _ repository.DBTX, accountID uuid.UUID, limit int) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.store.payments {
		if p.SellerID != nil && *p.SellerID == accountID {
			out = append(out, *p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) Create(_ context.Context, _ repository.DBTX, s *domain.PaymentSession) (*domain.PaymentSession, error) {
	r.store.nextSession++
	cp := *s
	cp.ID = r.store.nextSession
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.store.sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeSessionRepo) SetToken(_ context.Context, _ repository.DBTX, id int64, token string) error {
	s := r.store.sessions[id]
	if s == nil {
		return fmt.Errorf("session not found")
	}
	s.Token = token
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.PaymentSession, error) {
	s := r.store.sessions[id]
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) FindByIDAndToken(_ context.Context, _ repository.DBTX, id int64, token string) (*domain.PaymentSession, error) {
	s := r.store.sessions[id]
	if s == nil || token == "" || s.Token != token {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) ExistsForOrder(_ context.Context, _ repository.DBTX, merchantID int64, orderID string) (bool, error) {
	for _, s := range r.store.sessions {
		if s.MerchantID != merchantID || s.OriginalSessionID != nil {
			continue
		}
		payload, err := domain.DecodeSessionPayload(s.Payload)
		if err != nil {
			continue
		}
		if payload.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id int64, status domain.SessionStatus) error {
	s := r.store.sessions[id]
	if s == nil {
		return fmt.Errorf("session not found")
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

func (r *fakeSessionRepo) UpdatePayload(_ context.Context, _ repository.DBTX, id int64, payload string) error {
	s := r.store.sessions[id]
	if s == nil {
		return fmt.Errorf("session not found")
	}
	s.Payload = payload
	return nil
}

func (r *fakeSessionRepo) FindLatestByOrder(_ context.Context, _ repository.DBTX, merchantID int64, orderID string) (*domain.PaymentSession, error) {
	var latest *domain.PaymentSession
	for _, s := range r.store.sessions {
		if s.MerchantID != merchantID {
			continue
		}
		payload, err := domain.DecodeSessionPayload(s.Payload)
		if err != nil || payload.OrderID != orderID {
			continue
		}
		if latest == nil || s.ID > latest.ID {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

type fakeMerchantRepo struct{ store *fakeStore }

func (r *fakeMerchantRepo) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.Merchant, error) {
	return r.store.merchants[id], nil
}

type fakeProviderRepo struct{ store *fakeStore }

func (r *fakeProviderRepo) FindByPublicKey(_ context.Context, _ repository.DBTX, publicKey string) (*domain.PaymentProvider, error) {
	for _, p := range r.store.providers {
		if p.PublicKey == publicKey {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProviderRepo) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.PaymentProvider, error) {
	return r.store.providers[id], nil
}

type fakeWithdrawalRepo struct{ store *fakeStore }

func (r *fakeWithdrawalRepo) Insert(_ context.Context, _ repository.DBTX, w *domain.Withdrawal) (*domain.Withdrawal, error) {
	cp := *w
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.store.withdrawals[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeWithdrawalRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Withdrawal, error) {
	return r.store.withdrawals[id], nil
}

func (r *fakeWithdrawalRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, status domain.WithdrawalStatus) error {
	w := r.store.withdrawals[id]
	if w == nil {
		return fmt.Errorf("withdrawal not found")
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	return nil
}

func (r *fakeWithdrawalRepo) ListByAccount(_ context.Context, _ repository.DBTX, accountID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	for _, w := range r.store.withdrawals {
		if w.AccountID == accountID {
			out = append(out, *w)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeAuditRepo struct{ store *fakeStore }

func (r *fakeAuditRepo) InsertFee(_ context.Context, _ pgx.Tx, paymentID uuid.UUID, percentage string, amount int64, direction domain.Direction) (*domain.AccountAudit, error) {
	if direction == domain.DirectionIn {
		r.store.auditBalance += amount
	} else {
		r.store.auditBalance -= amount
	}
	row := domain.AccountAudit{
		ID:         int64(len(r.store.audits) + 1),
		PaymentID:  paymentID,
		Percentage: percentage,
		Amount:     amount,
		Balance:    r.store.auditBalance,
		Direction:  direction,
		CreatedAt:  time.Now(),
	}
	r.store.audits = append(r.store.audits, row)
	return &row, nil
}

func (r *fakeAuditRepo) PlatformBalance(_ context.Context, _ repository.DBTX) (int64, error) {
	return r.store.auditBalance, nil
}

func (r *fakeAuditRepo) ListSince(_ context.Context, _ repository.DBTX, since time.Time, limit int) ([]domain.AccountAudit, error) {
	var out []domain.AccountAudit
	for _, row := range r.store.audits {
		if row.CreatedAt.Before(since) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeOutboxRepo struct{ store *fakeStore }

func (r *fakeOutboxRepo) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	r.store.outbox = append(r.store.outbox, draft)
	return nil
}

// fakeUploader stores nothing and answers with a deterministic URL.
type fakeUploader struct{ stored []string }

func (u *fakeUploader) Store(_ context.Context, name string, _ []byte) (string, error) {
	url := "https://cdn.test/" + name
	u.stored = append(u.stored, url)
	return url, nil
}
