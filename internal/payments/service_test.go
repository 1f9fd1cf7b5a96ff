package payments

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rajulearn/backend/internal/execution"
	"github.com/rajulearn/backend/internal/models"
	"github.com/rajulearn/backend/internal/repository"
)

const testSecret = "key_secret"

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// recordingTx satisfies pgx.Tx and remembers whether it was committed.
type recordingTx struct {
	committed bool
}

func (t *recordingTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *recordingTx) Commit(context.Context) error          { t.committed = true; return nil }
func (t *recordingTx) Rollback(context.Context) error        { return nil }
func (t *recordingTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *recordingTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *recordingTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *recordingTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *recordingTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *recordingTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *recordingTx) Conn() *pgx.Conn { return nil }

type mockPool struct {
	txs []*recordingTx
}

func (p *mockPool) Begin(context.Context) (pgx.Tx, error) {
	tx := &recordingTx{}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *mockPool) committed() int {
	n := 0
	for _, tx := range p.txs {
		if tx.committed {
			n++
		}
	}
	return n
}

type mockOrders struct {
	mu     sync.Mutex
	orders map[string]*models.PaymentOrder
}

func newMockOrders(orders ...*models.PaymentOrder) *mockOrders {
	m := &mockOrders{orders: make(map[string]*models.PaymentOrder)}
	for _, o := range orders {
		cp := *o
		m.orders[o.ID] = &cp
	}
	return m
}

func (m *mockOrders) GetByID(_ context.Context, id string) (*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) MarkCompleted(_ context.Context, _ pgx.Tx, id, paymentID string) (*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderStatusCreated {
		return nil, repository.ErrOrderAlreadyCompleted
	}
	o.Status = models.OrderStatusCompleted
	o.PaymentID = &paymentID
	cp := *o
	return &cp, nil
}

type appliedPurchase struct {
	userID     uuid.UUID
	tier       models.Tier
	price      decimal.Decimal
	referredBy *uuid.UUID
}

type mockProfiles struct {
	byCode  map[string]*models.Profile
	findErr error
	applied []appliedPurchase
}

func (m *mockProfiles) FindByReferralCode(_ context.Context, code string) (*models.Profile, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byCode[code], nil
}

func (m *mockProfiles) ApplyPackagePurchase(_ context.Context, _ pgx.Tx, id uuid.UUID, tier models.Tier, price decimal.Decimal, referredBy *uuid.UUID) error {
	m.applied = append(m.applied, appliedPurchase{id, tier, price, referredBy})
	return nil
}

type mockLedger struct {
	txs []*models.Transaction
}

func (m *mockLedger) InsertTransaction(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.txs = append(m.txs, t)
	return nil
}

type jobRecorder struct {
	jobs []execution.ProcessCommissionArgs
	err  error
}

func (j *jobRecorder) insert(_ context.Context, _ pgx.Tx, args execution.ProcessCommissionArgs) error {
	if j.err != nil {
		return j.err
	}
	j.jobs = append(j.jobs, args)
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fixture struct {
	pool     *mockPool
	orders   *mockOrders
	profiles *mockProfiles
	ledger   *mockLedger
	jobs     *jobRecorder
	svc      *Service
}

func newFixture(t *testing.T, order *models.PaymentOrder, referrers ...*models.Profile) *fixture {
	t.Helper()
	f := &fixture{
		pool:     &mockPool{},
		orders:   newMockOrders(order),
		profiles: &mockProfiles{byCode: make(map[string]*models.Profile)},
		ledger:   &mockLedger{},
		jobs:     &jobRecorder{},
	}
	for _, p := range referrers {
		f.profiles.byCode[p.ReferralCode] = p
	}
	svc, err := NewService(f.pool, f.orders, f.profiles, f.ledger, f.jobs.insert, testSecret, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func createdOrder(userID uuid.UUID, tier models.Tier, code string) *models.PaymentOrder {
	return &models.PaymentOrder{
		ID:           "order_" + uuid.NewString()[:8],
		UserID:       userID,
		PackageType:  tier,
		ReferralCode: code,
		Amount:       models.PackagePrices[tier],
		Currency:     "INR",
		Status:       models.OrderStatusCreated,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewService_RequiresSecret(t *testing.T) {
	if _, err := NewService(&mockPool{}, nil, nil, nil, nil, "", nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestCompleteOrder_WithReferrer(t *testing.T) {
	buyer := uuid.New()
	referrer := &models.Profile{ID: uuid.New(), ReferralCode: "REF1", PackageType: models.TierSilver}
	order := createdOrder(buyer, models.TierGold, " REF1 ")
	f := newFixture(t, order, referrer)

	got, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", Sign(testSecret, order.ID, "pay_1"))
	if err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	if got.AlreadyCompleted || got.Order.Status != models.OrderStatusCompleted {
		t.Errorf("unexpected completion %+v", got)
	}
	if f.pool.committed() != 1 {
		t.Errorf("commits: got %d, want 1", f.pool.committed())
	}

	if len(f.profiles.applied) != 1 {
		t.Fatalf("package applications: got %d, want 1", len(f.profiles.applied))
	}
	a := f.profiles.applied[0]
	if a.userID != buyer || a.tier != models.TierGold || !a.price.Equal(decimal.NewFromInt(5310)) {
		t.Errorf("applied purchase: got %+v", a)
	}
	if a.referredBy == nil || *a.referredBy != referrer.ID {
		t.Errorf("referred_by: got %v, want %s", a.referredBy, referrer.ID)
	}

	if len(f.ledger.txs) != 1 || f.ledger.txs[0].Type != models.TransactionPackagePurchase {
		t.Fatalf("expected one package_purchase line, got %+v", f.ledger.txs)
	}

	want := execution.ProcessCommissionArgs{PurchaserID: buyer, PackageTier: models.TierGold, ReferralCode: "REF1"}
	if len(f.jobs.jobs) != 1 || f.jobs.jobs[0] != want {
		t.Errorf("jobs: got %+v, want %+v", f.jobs.jobs, want)
	}
}

func TestCompleteOrder_OrganicAndSelfReferral(t *testing.T) {
	buyer := uuid.New()
	self := &models.Profile{ID: buyer, ReferralCode: "ME", PackageType: models.TierGold}

	cases := []struct {
		name string
		code string
	}{
		{"no code", ""},
		{"unknown code", "NOBODY"},
		{"own code", "ME"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := createdOrder(buyer, models.TierSilver, tc.code)
			f := newFixture(t, order, self)

			if _, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", Sign(testSecret, order.ID, "pay_1")); err != nil {
				t.Fatalf("CompleteOrder: %v", err)
			}
			if len(f.profiles.applied) != 1 || f.profiles.applied[0].referredBy != nil {
				t.Errorf("expected package applied without a referrer, got %+v", f.profiles.applied)
			}
			if len(f.jobs.jobs) != 1 {
				t.Errorf("jobs: got %d, want 1", len(f.jobs.jobs))
			}
		})
	}
}

func TestCompleteOrder_InvalidSignature(t *testing.T) {
	order := createdOrder(uuid.New(), models.TierGold, "")
	f := newFixture(t, order)

	_, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", Sign("wrong", order.ID, "pay_1"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if len(f.pool.txs) != 0 || len(f.jobs.jobs) != 0 {
		t.Error("nothing may be written for a forged signature")
	}
}

func TestCompleteOrder_UnknownOrder(t *testing.T) {
	f := newFixture(t, createdOrder(uuid.New(), models.TierGold, ""))

	_, err := f.svc.CompleteOrder(context.Background(), "missing", "pay_1", Sign(testSecret, "missing", "pay_1"))
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCompleteOrder_SecondVerificationIsNoop(t *testing.T) {
	order := createdOrder(uuid.New(), models.TierPlatinum, "")
	f := newFixture(t, order)
	sig := Sign(testSecret, order.ID, "pay_1")

	if _, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", sig); err != nil {
		t.Fatalf("first: %v", err)
	}
	got, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", sig)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !got.AlreadyCompleted {
		t.Error("expected the second verification to report AlreadyCompleted")
	}
	if len(f.jobs.jobs) != 1 || len(f.ledger.txs) != 1 || len(f.profiles.applied) != 1 {
		t.Errorf("second verification wrote again: jobs=%d txs=%d applied=%d", len(f.jobs.jobs), len(f.ledger.txs), len(f.profiles.applied))
	}
}

func TestCompleteOrder_UnknownPackage(t *testing.T) {
	order := createdOrder(uuid.New(), models.Tier("diamond"), "")
	f := newFixture(t, order)

	_, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", Sign(testSecret, order.ID, "pay_1"))
	if !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestCompleteOrder_EnqueueFailureRollsBack(t *testing.T) {
	order := createdOrder(uuid.New(), models.TierGold, "")
	f := newFixture(t, order)
	f.jobs.err = errors.New("river unavailable")

	if _, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", Sign(testSecret, order.ID, "pay_1")); err == nil {
		t.Fatal("expected enqueue failure to fail the completion")
	}
	if f.pool.committed() != 0 {
		t.Error("transaction must not commit when the job cannot be enqueued")
	}
}

func TestCompleteOrder_ReferrerLookupFailure(t *testing.T) {
	order := createdOrder(uuid.New(), models.TierGold, "REF")
	f := newFixture(t, order)
	f.profiles.findErr = errors.New("connection refused")

	if _, err := f.svc.CompleteOrder(context.Background(), order.ID, "pay_1", Sign(testSecret, order.ID, "pay_1")); err == nil {
		t.Fatal("expected lookup failure to be returned")
	}
	if len(f.pool.txs) != 0 {
		t.Error("no transaction may start before the referrer is resolved")
	}
}
