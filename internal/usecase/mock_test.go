//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu   sync.Mutex
	byID map[string]*model.User

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	r := &MockUserRepo{byID: map[string]*model.User{}}
	for _, u := range users {
		cp := *u
		r.byID[u.ID] = &cp
	}
	return r
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.ID != u.ID && x.ExternalAuthID == u.ExternalAuthID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *MockUserRepo) FindByExternalAuthID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ExternalAuthID == id })
}

func (r *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	return r.find(func(u *model.User) bool { return u.Email != "" && u.Email == email })
}

// ---- Mock SubscriptionPlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.SubscriptionPlan
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.SubscriptionPlan) *MockPlanRepo {
	r := &MockPlanRepo{data: map[string]*model.SubscriptionPlan{}}
	for _, p := range plans {
		r.data[p.ID] = p
	}
	return r
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) find(match func(*model.SubscriptionPlan) bool) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	return r.find(func(p *model.SubscriptionPlan) bool { return p.ID == id })
}

func (r *MockPlanRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	return r.find(func(p *model.SubscriptionPlan) bool { return p.Name == name })
}

func (r *MockPlanRepo) FindByExternalID(ctx context.Context, tx repository.Tx, ext string) (*model.SubscriptionPlan, error) {
	return r.find(func(p *model.SubscriptionPlan) bool { return p.ExternalPlanID != nil && *p.ExternalPlanID == ext })
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range r.data {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock SubscriptionRepository ----

// MockSubscriptionRepo enforces the same uniqueness as the schema: one row per
// external subscription id and one provisioned trial per user.
type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription
	seq  int
	ord  map[string]int

	Inserts int
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}, ord: map[string]int{}}
}

func (r *MockSubscriptionRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, s *model.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if s.ExternalSubscriptionID != nil && x.ExternalSubscriptionID != nil && *x.ExternalSubscriptionID == *s.ExternalSubscriptionID {
			return false, nil
		}
		if s.ExternalSubscriptionID == nil && x.ExternalSubscriptionID == nil && x.UserID == s.UserID {
			return false, nil
		}
	}
	cp := *s
	r.data[s.ID] = &cp
	r.seq++
	r.ord[s.ID] = r.seq
	r.Inserts++
	return true, nil
}

func (r *MockSubscriptionRepo) Update(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, ext string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.ExternalSubscriptionID != nil && *s.ExternalSubscriptionID == ext {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindLatestByUser orders access-granting rows first, then newest first.
func (r *MockSubscriptionRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	all := r.ByUser(userID)
	if len(all) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].IsActive() != all[j].IsActive() {
			return all[i].IsActive()
		}
		return r.order(all[i].ID) > r.order(all[j].ID)
	})
	return all[0], nil
}

func (r *MockSubscriptionRepo) FindTrialByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	for _, s := range r.ByUser(userID) {
		if s.ExternalSubscriptionID == nil {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindUserIDByCustomerID(ctx context.Context, tx repository.Tx, customerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.ExternalCustomerID != nil && *s.ExternalCustomerID == customerID {
			return s.UserID, nil
		}
	}
	return "", domain.ErrNotFound
}

// ByUser returns copies of every subscription of userID.
func (r *MockSubscriptionRepo) ByUser(userID string) []*model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

func (r *MockSubscriptionRepo) order(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ord[id]
}

// ---- Mock UsagePeriodRepository ----

type MockUsageRepo struct {
	mu   sync.Mutex
	data map[string]*model.UsagePeriod

	IncrementFunc func(ctx context.Context, tx repository.Tx, periodID string, action model.UsageAction) (*model.UsagePeriod, error)
}

var _ repository.UsagePeriodRepository = (*MockUsageRepo)(nil)

func NewMockUsageRepo() *MockUsageRepo {
	return &MockUsageRepo{data: map[string]*model.UsagePeriod{}}
}

func (r *MockUsageRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, p *model.UsagePeriod) (*model.UsagePeriod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if x.SubscriptionID == p.SubscriptionID && x.PeriodStart.Equal(p.PeriodStart) && x.PeriodEnd.Equal(p.PeriodEnd) {
			cp := *x
			return &cp, nil
		}
	}
	cp := *p
	r.data[p.ID] = &cp
	out := cp
	return &out, nil
}

func (r *MockUsageRepo) FindCurrent(ctx context.Context, tx repository.Tx, subID string, start, end time.Time) (*model.UsagePeriod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if x.SubscriptionID == subID && x.PeriodStart.Equal(start) && x.PeriodEnd.Equal(end) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUsageRepo) Increment(ctx context.Context, tx repository.Tx, periodID string, action model.UsageAction) (*model.UsagePeriod, error) {
	if r.IncrementFunc != nil {
		return r.IncrementFunc(ctx, tx, periodID, action)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[periodID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	switch action {
	case model.ActionGenerateImage:
		p.ImagesGenerated++
	case model.ActionTrainModel:
		p.ModelsTrained++
	}
	cp := *p
	return &cp, nil
}

func (r *MockUsageRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subID string) ([]*model.UsagePeriod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UsagePeriod
	for _, x := range r.data {
		if x.SubscriptionID == subID {
			cp := *x
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.PaymentTransaction // by external id
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.PaymentTransaction{}}
}

func (r *MockPaymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.data[p.ExternalPaymentID]; ok {
		x.Status = p.Status
		x.FailureReason = p.FailureReason
		if p.RefundedAt != nil {
			x.RefundedAt = p.RefundedAt
		}
		if p.SubscriptionID != nil {
			x.SubscriptionID = p.SubscriptionID
		}
		x.UpdatedAt = p.UpdatedAt
		cp := *x
		return &cp, nil
	}
	cp := *p
	r.data[p.ExternalPaymentID] = &cp
	out := cp
	return &out, nil
}

func (r *MockPaymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, ext string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.data[ext]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, x := range r.data {
		if x.UserID == userID {
			cp := *x
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Mock WebhookEventRepository ----

type MockWebhookEventRepo struct {
	mu   sync.Mutex
	data map[string]*model.WebhookEvent
	// HonorCtx makes the outcome writes fail on a done context, like a real driver.
	HonorCtx bool
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{data: map[string]*model.WebhookEvent{}}
}

func (r *MockWebhookEventRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) (bool, *model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.data[e.ExternalEventID]; ok {
		cp := *x
		return false, &cp, nil
	}
	cp := *e
	r.data[e.ExternalEventID] = &cp
	out := cp
	return true, &out, nil
}

func (r *MockWebhookEventRepo) FindByExternalID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.data[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockWebhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string) error {
	if r.HonorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	x.Processed, x.ProcessingError, x.ProcessedAt = true, nil, &now
	x.Attempts++
	return nil
}

func (r *MockWebhookEventRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errText string) error {
	if r.HonorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	x.Processed, x.ProcessingError = false, &errText
	x.Attempts++
	return nil
}

// ---- Mock TrainingJobRepository ----

type MockTrainingJobRepo struct {
	mu   sync.Mutex
	data map[string]*model.TrainingJob
}

var _ repository.TrainingJobRepository = (*MockTrainingJobRepo)(nil)

func NewMockTrainingJobRepo(jobs ...*model.TrainingJob) *MockTrainingJobRepo {
	r := &MockTrainingJobRepo{data: map[string]*model.TrainingJob{}}
	for _, j := range jobs {
		cp := *j
		r.data[j.ID] = &cp
	}
	return r
}

func (r *MockTrainingJobRepo) Save(ctx context.Context, tx repository.Tx, j *model.TrainingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.data[j.ID] = &cp
	return nil
}

func (r *MockTrainingJobRepo) FindByExternalID(ctx context.Context, tx repository.Tx, ext string) (*model.TrainingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.data {
		if j.ExternalJobID == ext {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockTrainingJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.TrainingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.data[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockTrainingJobRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.TrainingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TrainingJob
	for _, j := range r.data {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockTrainingJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

type MockBilling struct {
	mu        sync.Mutex
	Cancelled []string
	Checkouts []adapter.CheckoutRequest

	CancelFunc   func(ctx context.Context, id string, atPeriodEnd bool) error
	CheckoutFunc func(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error)
}

var _ adapter.BillingProvider = (*MockBilling)(nil)

func (m *MockBilling) Name() string { return "mockbilling" }

func (m *MockBilling) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Checkouts = append(m.Checkouts, req)
	return &adapter.Checkout{
		ExternalSubscriptionID: "sub_checkout_1",
		ExternalCustomerID:     "cus_1",
		PaymentID:              "pay_checkout_1",
		PaymentLink:            "https://checkout.test/pay/1",
	}, nil
}

func (m *MockBilling) CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id, atPeriodEnd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, id)
	return nil
}

// MockMessenger implements both Notifier and OpsAlerter and records what it was given.
type MockMessenger struct {
	mu     sync.Mutex
	Mails  []string
	Alerts []string
}

var (
	_ adapter.Notifier   = (*MockMessenger)(nil)
	_ adapter.OpsAlerter = (*MockMessenger)(nil)
)

func (m *MockMessenger) Notify(ctx context.Context, to string, n adapter.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mails = append(m.Mails, to+": "+n.Subject)
	return nil
}

func (m *MockMessenger) Alert(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, text)
	return nil
}

func (m *MockMessenger) Counts() (mails, alerts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Mails), len(m.Alerts)
}

type MockTrainingProvider struct {
	mu       sync.Mutex
	Requests []adapter.TrainingRequest
	Deleted  []string
	Err      error
}

func (m *MockTrainingProvider) StartTraining(ctx context.Context, req adapter.TrainingRequest) (*adapter.TrainingHandle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	return &adapter.TrainingHandle{ExternalJobID: "r8-" + req.TriggerWord + "-1", Status: "starting"}, nil
}

func (m *MockTrainingProvider) DeleteModel(ctx context.Context, modelID, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, modelID+":"+version)
	return m.Err
}

type MockBlobStore struct {
	mu   sync.Mutex
	Keys []string

	PutFunc func(ctx context.Context, key string, body io.Reader) (string, error)
}

func (m *MockBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, body)
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return "https://cdn.example/" + key, nil
}

func (m *MockBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type MockImageGenerator struct {
	mu   sync.Mutex
	Reqs []adapter.ImageRequest

	GenerateFunc func(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error)
}

func (m *MockImageGenerator) Name() string { return "mockgen" }

func (m *MockImageGenerator) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	m.mu.Lock()
	m.Reqs = append(m.Reqs, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	out := make([]adapter.GeneratedImage, req.Count)
	for i := range out {
		out[i] = adapter.GeneratedImage{URL: "https://provider.example/img.png", MIMEType: "image/png"}
	}
	return out, nil
}

type MockRehoster struct {
	RehostFunc func(ctx context.Context, img adapter.GeneratedImage, key string) (string, error)
}

func (m *MockRehoster) Rehost(ctx context.Context, img adapter.GeneratedImage, key string) (string, error) {
	if m.RehostFunc != nil {
		return m.RehostFunc(ctx, img, key)
	}
	return "https://cdn.example/" + key, nil
}

type MockLimiter struct {
	Allowed bool
	Err     error
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, error) { return m.Allowed, m.Err }

type fixedTokens int

func (f fixedTokens) Count(string) int { return int(f) }

// =============================
// Fixtures
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

const (
	proProductID  = "pdt_pro"
	testUserID    = "user-1"
	testUserEmail = "ada@example.com"
)

func testPlans() (free, pro *model.SubscriptionPlan) {
	ext := proProductID
	free = &model.SubscriptionPlan{ID: "plan-free", Name: model.FreePlanName, Price: decimal.Zero, Currency: "USD",
		ImageLimit: model.IntPtr(10), ModelLimit: model.IntPtr(1), IsActive: true}
	pro = &model.SubscriptionPlan{ID: "plan-pro", Name: "pro", Price: decimal.NewFromInt(29), Currency: "USD",
		ImageLimit: model.IntPtr(500), ModelLimit: model.IntPtr(5), IsActive: true, ExternalPlanID: &ext}
	return free, pro
}

func testUser() *model.User {
	return &model.User{ID: testUserID, ExternalAuthID: "auth|1", Email: testUserEmail}
}

// fixture bundles the in-memory repositories behind every use case.
type fixture struct {
	users    *MockUserRepo
	plans    *MockPlanRepo
	subs     *MockSubscriptionRepo
	usage    *MockUsageRepo
	payments *MockPaymentRepo
	events   *MockWebhookEventRepo
	jobs     *MockTrainingJobRepo
	tm       *MockTxManager
	billing  *MockBilling
	msgs     *MockMessenger
}

func newFixture() *fixture {
	free, pro := testPlans()
	return &fixture{
		users:    NewMockUserRepo(testUser()),
		plans:    NewMockPlanRepo(free, pro),
		subs:     NewMockSubscriptionRepo(),
		usage:    NewMockUsageRepo(),
		payments: NewMockPaymentRepo(),
		events:   NewMockWebhookEventRepo(),
		jobs:     NewMockTrainingJobRepo(),
		tm:       NewMockTxManager(),
		billing:  &MockBilling{},
		msgs:     &MockMessenger{},
	}
}
