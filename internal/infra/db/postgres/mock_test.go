//go:build !integration

package postgres

import (
	"context"
	"sync"
	"time"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	red "ai-image-studio/internal/infra/redis"
)

// mockInnerPlanRepo stands in for the database repository the cache wraps.
type mockInnerPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.SubscriptionPlan
	calls int
}

func newMockInnerPlanRepo(plans ...*model.SubscriptionPlan) *mockInnerPlanRepo {
	m := &mockInnerPlanRepo{plans: map[string]*model.SubscriptionPlan{}}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *mockInnerPlanRepo) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockInnerPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.plans[plan.ID] = &cp
	return nil
}

func (m *mockInnerPlanRepo) find(match func(p *model.SubscriptionPlan) bool) (*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, p := range m.plans {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	return m.find(func(p *model.SubscriptionPlan) bool { return p.ID == id })
}

func (m *mockInnerPlanRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.SubscriptionPlan, error) {
	return m.find(func(p *model.SubscriptionPlan) bool { return p.Name == name })
}

func (m *mockInnerPlanRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalPlanID string) (*model.SubscriptionPlan, error) {
	return m.find(func(p *model.SubscriptionPlan) bool {
		return p.ExternalPlanID != nil && *p.ExternalPlanID == externalPlanID
	})
}

func (m *mockInnerPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []*model.SubscriptionPlan
	for _, p := range m.plans {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// brokenRedis fails every call, like an unreachable server.
type brokenRedis struct{ err error }

var _ red.RedisClient = brokenRedis{}

func (b brokenRedis) Ping(context.Context) error { return b.err }
func (b brokenRedis) Set(context.Context, string, interface{}, time.Duration) error {
	return b.err
}
func (b brokenRedis) Get(context.Context, string) (string, error) { return "", b.err }
func (b brokenRedis) Del(context.Context, ...string) error { return b.err }
func (b brokenRedis) Incr(context.Context, string) (int64, error) { return 0, b.err }
func (b brokenRedis) Expire(context.Context, string, time.Duration) error { return b.err }
func (b brokenRedis) TTL(context.Context, string) (time.Duration, error) { return 0, b.err }
func (b brokenRedis) Close() error { return nil }

type mockInnerUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	reads int
}

func newMockInnerUserRepo(users ...*model.User) *mockInnerUserRepo {
	m := &mockInnerUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockInnerUserRepo) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *mockInnerUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockInnerUserRepo) find(match func(u *model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockInnerUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *mockInnerUserRepo) FindByExternalAuthID(ctx context.Context, tx repository.Tx, externalAuthID string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ExternalAuthID == externalAuthID })
}

func (m *mockInnerUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email })
}
