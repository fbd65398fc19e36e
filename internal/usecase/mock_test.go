//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sportshub-payments/internal/domain"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/adapter"
	"sportshub-payments/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---------- payments ----------

// MockPaymentRepo is an in-memory store. TransitionStatus holds the mutex across
// check and write, which mirrors the conditional UPDATE in Postgres.
type MockPaymentRepo struct {
	mu    sync.Mutex
	byRef map[string]*model.Payment

	SaveErr       error
	TransitionErr error
	transitions   int32
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byRef: make(map[string]*model.Payment)}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[p.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.byRef[p.Reference] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byRef {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byRef {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*model.Payment{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byRef {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) TransitionStatus(ctx context.Context, tx repository.Tx, reference string, from []model.PaymentStatus, to model.PaymentStatus, providerRef *string, paidAt *time.Time) (bool, error) {
	if r.TransitionErr != nil {
		return false, r.TransitionErr
	}
	for _, s := range from {
		if !s.CanTransitionTo(to) {
			return false, domain.ErrInvalidState
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[reference]
	if !ok {
		return false, nil
	}
	match := false
	for _, s := range from {
		if p.Status == s {
			match = true
		}
	}
	if !match {
		return false, nil
	}
	p.Status = to
	if providerRef != nil {
		p.ProviderReference = providerRef
	}
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	atomic.AddInt32(&r.transitions, 1)
	return true, nil
}

// Put stores p directly, bypassing Save's checks.
func (r *MockPaymentRepo) Put(p *model.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byRef[p.Reference] = &cp
}

func (r *MockPaymentRepo) Only() *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byRef {
		cp := *p
		return &cp
	}
	return nil
}

func (r *MockPaymentRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRef)
}

func (r *MockPaymentRepo) Transitions() int { return int(atomic.LoadInt32(&r.transitions)) }

// ---------- campaigns & users ----------

type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*model.AdCampaign
}

var _ repository.AdCampaignRepository = (*MockCampaignRepo)(nil)

func NewMockCampaignRepo(cs ...*model.AdCampaign) *MockCampaignRepo {
	r := &MockCampaignRepo{campaigns: make(map[string]*model.AdCampaign)}
	for _, c := range cs {
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *MockCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.AdCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = c
	return nil
}

func (r *MockCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AdCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCampaignRepo) Activate(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || !c.IsPayable() {
		return false, nil
	}
	c.Status = model.CampaignStatusActive
	return true, nil
}

func (r *MockCampaignRepo) Status(id string) model.CampaignStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

type MockUserRepo struct {
	users map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(us ...*model.User) *MockUserRepo {
	r := &MockUserRepo{users: make(map[string]*model.User)}
	for _, u := range us {
		r.users[u.ID] = u
	}
	return r
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// ---------- gateway ----------

type MockPaymentGateway struct {
	InitializeFunc      func(ctx context.Context, req adapter.InitializeRequest) (*adapter.InitializeResult, error)
	VerifyFunc          func(ctx context.Context, reference string) (*adapter.GatewayStatus, error)
	VerifySignatureFunc func(payload []byte, signature string) bool

	verifyCalls int32
	lastInit    adapter.InitializeRequest
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "paystack" }

func (m *MockPaymentGateway) Initialize(ctx context.Context, req adapter.InitializeRequest) (*adapter.InitializeResult, error) {
	m.lastInit = req
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, req)
	}
	return &adapter.InitializeResult{
		CheckoutURL:       "https://checkout.test/" + req.Reference,
		AccessCode:        "ac_" + req.Reference,
		ProviderReference: req.Reference,
	}, nil
}

func (m *MockPaymentGateway) Verify(ctx context.Context, reference string) (*adapter.GatewayStatus, error) {
	atomic.AddInt32(&m.verifyCalls, 1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}
	return &adapter.GatewayStatus{Status: "success", ProviderReference: "trx-" + reference}, nil
}

func (m *MockPaymentGateway) VerifySignature(payload []byte, signature string) bool {
	if m.VerifySignatureFunc != nil {
		return m.VerifySignatureFunc(payload, signature)
	}
	return signature == "good-signature"
}

func (m *MockPaymentGateway) VerifyCalls() int { return int(atomic.LoadInt32(&m.verifyCalls)) }

// ---------- collaborators ----------

// MockActivator forwards to a campaign repo and counts calls.
type MockActivator struct {
	repo  *MockCampaignRepo
	Err   error
	calls int32
}

func (m *MockActivator) Activate(ctx context.Context, campaignID string) error {
	atomic.AddInt32(&m.calls, 1)
	if m.Err != nil {
		return m.Err
	}
	_, err := m.repo.Activate(ctx, nil, campaignID)
	return err
}

func (m *MockActivator) Calls() int { return int(atomic.LoadInt32(&m.calls)) }

type MockAcknowledger struct {
	Err   error
	calls int32
}

func (m *MockAcknowledger) Acknowledge(ctx context.Context, p *model.Payment) error {
	atomic.AddInt32(&m.calls, 1)
	return m.Err
}

func (m *MockAcknowledger) Calls() int { return int(atomic.LoadInt32(&m.calls)) }

// ---------- stats ----------

type MockStatsRepo struct {
	SumSuccessfulFunc        func(ctx context.Context, tx repository.Tx, currency model.Currency) (int64, error)
	SumSuccessfulByTypeFunc  func(ctx context.Context, tx repository.Tx, currency model.Currency) (map[model.PaymentType]int64, error)
	SumSuccessfulByMonthFunc func(ctx context.Context, tx repository.Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error)
	TopCustomersFunc         func(ctx context.Context, tx repository.Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error)
}

var _ repository.PaymentStatsRepository = (*MockStatsRepo)(nil)

func (m *MockStatsRepo) SumSuccessful(ctx context.Context, tx repository.Tx, currency model.Currency) (int64, error) {
	return m.SumSuccessfulFunc(ctx, tx, currency)
}
func (m *MockStatsRepo) SumSuccessfulByType(ctx context.Context, tx repository.Tx, currency model.Currency) (map[model.PaymentType]int64, error) {
	return m.SumSuccessfulByTypeFunc(ctx, tx, currency)
}
func (m *MockStatsRepo) SumSuccessfulByMonth(ctx context.Context, tx repository.Tx, currency model.Currency, since time.Time) ([]model.MonthlySum, error) {
	return m.SumSuccessfulByMonthFunc(ctx, tx, currency, since)
}
func (m *MockStatsRepo) TopCustomers(ctx context.Context, tx repository.Tx, currency model.Currency, limit int) ([]model.CustomerSpend, error) {
	return m.TopCustomersFunc(ctx, tx, currency, limit)
}
