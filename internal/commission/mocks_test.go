package commission

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/models"
)

// ---------------------------------------------------------------------------
// noopTx satisfies pgx.Tx; the in-memory stores below apply writes directly.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// lostAckTx reports a transient error from Commit even though the writes landed.
type lostAckTx struct{ noopTx }

func (lostAckTx) Commit(context.Context) error { return &pgconn.PgError{Code: "40001"} }

type mockPool struct {
	mu         sync.Mutex
	lostAcks   int
	beginCalls int
}

func (p *mockPool) Begin(context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beginCalls++
	if p.lostAcks > 0 {
		p.lostAcks--
		return lostAckTx{}, nil
	}
	return noopTx{}, nil
}

// ---------------------------------------------------------------------------
// Profile directory
// ---------------------------------------------------------------------------

type mockProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.Profile
	findErr  error
	byIDErr  error
	incErr   error
}

func newMockProfiles(ps ...*models.Profile) *mockProfiles {
	m := &mockProfiles{profiles: make(map[uuid.UUID]*models.Profile)}
	for _, p := range ps {
		cp := *p
		m.profiles[p.ID] = &cp
	}
	return m
}

func (m *mockProfiles) FindByReferralCode(_ context.Context, code string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, p := range m.profiles {
		if p.ReferralCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockProfiles) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfiles) IncrementEarnings(_ context.Context, _ pgx.Tx, id uuid.UUID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return m.incErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return errors.New("profile not found")
	}
	p.TotalEarnings = p.TotalEarnings.Add(amount)
	p.AvailableBalance = p.AvailableBalance.Add(amount)
	return nil
}

func (m *mockProfiles) get(id uuid.UUID) models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.profiles[id]
}

// ---------------------------------------------------------------------------
// Ledger store
// ---------------------------------------------------------------------------

type commissionKey struct {
	purchaser, beneficiary uuid.UUID
	kind                   models.CommissionKind
}

type mockLedger struct {
	mu           sync.Mutex
	commissions  map[commissionKey]*models.Commission
	transactions []*models.Transaction
	// The next failCount InsertCommission calls of failKind return failErr.
	failKind  models.CommissionKind
	failCount int
	failErr   error
}

func newMockLedger() *mockLedger {
	return &mockLedger{commissions: make(map[commissionKey]*models.Commission)}
}

func (m *mockLedger) InsertCommission(_ context.Context, _ pgx.Tx, c *models.Commission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount > 0 && c.Kind == m.failKind {
		m.failCount--
		return false, m.failErr
	}
	k := commissionKey{c.PurchaserID, c.BeneficiaryID, c.Kind}
	if _, ok := m.commissions[k]; ok {
		return false, nil
	}
	cp := *c
	m.commissions[k] = &cp
	return true, nil
}

func (m *mockLedger) InsertTransaction(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.transactions = append(m.transactions, &cp)
	return nil
}

func (m *mockLedger) byKind(kind models.CommissionKind) []*models.Commission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Commission
	for _, c := range m.commissions {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockLedger) count() (commissions, transactions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commissions), len(m.transactions)
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

type recordingNotifier struct {
	mu    sync.Mutex
	calls []*models.Commission
}

func (n *recordingNotifier) CommissionCredited(_ context.Context, c *models.Commission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
}
