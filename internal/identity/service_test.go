package identity

import (
	"context"
	"testing"
	"time"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/model"
)

type fakeTenants struct {
	byID    map[string]model.Tenant
	byEmail map[string]model.Tenant
}

func newFakeTenants() *fakeTenants {
	return &fakeTenants{byID: map[string]model.Tenant{}, byEmail: map[string]model.Tenant{}}
}

func (f *fakeTenants) Insert(ctx context.Context, t model.Tenant) error {
	f.byID[t.ID] = t
	f.byEmail[t.Email] = t
	return nil
}
func (f *fakeTenants) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}
func (f *fakeTenants) GetByEmail(ctx context.Context, email string) (*model.Tenant, error) {
	t, ok := f.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

type fakeProjects struct{ byID map[string]model.Project }

func newFakeProjects() *fakeProjects { return &fakeProjects{byID: map[string]model.Project{}} }

func (f *fakeProjects) Insert(ctx context.Context, p model.Project) error {
	f.byID[p.ID] = p
	return nil
}
func (f *fakeProjects) GetByID(ctx context.Context, id string) (*model.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
func (f *fakeProjects) ListByTenant(ctx context.Context, tenantID string) ([]model.Project, error) {
	var out []model.Project
	for _, p := range f.byID {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeApiKeys struct{ byID map[string]model.ApiKey }

func newFakeApiKeys() *fakeApiKeys { return &fakeApiKeys{byID: map[string]model.ApiKey{}} }

func (f *fakeApiKeys) Insert(ctx context.Context, k model.ApiKey) error {
	f.byID[k.ID] = k
	return nil
}
func (f *fakeApiKeys) GetByID(ctx context.Context, id string) (*model.ApiKey, error) {
	k, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &k, nil
}
func (f *fakeApiKeys) GetActiveByLookupHash(ctx context.Context, lookupHash string) (*model.ApiKey, error) {
	for _, k := range f.byID {
		if k.LookupHash == lookupHash && k.RevokedAt == nil {
			return &k, nil
		}
	}
	return nil, nil
}
func (f *fakeApiKeys) ListByProject(ctx context.Context, projectID string) ([]model.ApiKey, error) {
	var out []model.ApiKey
	for _, k := range f.byID {
		if k.ProjectID == projectID {
			out = append(out, k)
		}
	}
	return out, nil
}
func (f *fakeApiKeys) Revoke(ctx context.Context, id string, at time.Time) error {
	k, ok := f.byID[id]
	if !ok {
		return nil
	}
	k.RevokedAt = &at
	f.byID[id] = k
	return nil
}
func (f *fakeApiKeys) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	k, ok := f.byID[id]
	if !ok {
		return nil
	}
	k.LastUsedAt = &at
	f.byID[id] = k
	return nil
}
func (f *fakeApiKeys) CountActiveByProject(ctx context.Context, projectID string) (int64, error) {
	var n int64
	for _, k := range f.byID {
		if k.ProjectID == projectID && k.RevokedAt == nil {
			n++
		}
	}
	return n, nil
}

type fakeSubscriptions struct{ activeByTenant map[string]model.Subscription }

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{activeByTenant: map[string]model.Subscription{}}
}

func (f *fakeSubscriptions) Insert(ctx context.Context, s model.Subscription) error {
	if s.Status == model.SubscriptionActive {
		f.activeByTenant[s.TenantID] = s
	}
	return nil
}
func (f *fakeSubscriptions) GetActiveByTenant(ctx context.Context, tenantID string) (*model.Subscription, error) {
	s, ok := f.activeByTenant[tenantID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}
func (f *fakeSubscriptions) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	for _, s := range f.activeByTenant {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}
func (f *fakeSubscriptions) Cancel(ctx context.Context, id string, atPeriodEnd bool) error {
	for tid, s := range f.activeByTenant {
		if s.ID == id {
			delete(f.activeByTenant, tid)
		}
	}
	return nil
}

func newTestService() (*Service, *fakeTenants, *fakeProjects, *fakeApiKeys, *fakeSubscriptions) {
	tenants := newFakeTenants()
	projects := newFakeProjects()
	apiKeys := newFakeApiKeys()
	subs := newFakeSubscriptions()
	svc := New(tenants, projects, apiKeys, subs, clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	return svc, tenants, projects, apiKeys, subs
}

func TestCreateTenantRejectsDuplicateEmail(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateTenant(ctx, "Acme", "ops@acme.example"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateTenant(ctx, "Acme Again", "ops@acme.example")
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.Conflict {
		t.Fatalf("expected a conflict error, got %v", err)
	}
}

func TestCreateApiKeyEnforcesPlanLimit(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, "Acme", "ops@acme.example")
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	project, err := svc.CreateProject(ctx, tenant.ID, "Space Raiders")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	// Free plan allows 2 active keys.
	for i := 0; i < 2; i++ {
		if _, _, err := svc.CreateApiKey(ctx, tenant.ID, project.ID, "key"); err != nil {
			t.Fatalf("create key %d: %v", i, err)
		}
	}

	_, _, err = svc.CreateApiKey(ctx, tenant.ID, project.ID, "key")
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.QuotaExceeded {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}

func TestValidateApiKeySucceedsAndFailsAfterRevoke(t *testing.T) {
	svc, _, _, apiKeys, _ := newTestService()
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, "Acme", "ops@acme.example")
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	project, err := svc.CreateProject(ctx, tenant.ID, "Space Raiders")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	key, plaintext, err := svc.CreateApiKey(ctx, tenant.ID, project.ID, "main")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	id, err := svc.ValidateApiKey(ctx, plaintext)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.Tenant.ID != tenant.ID || id.Project.ID != project.ID || id.ApiKey.ID != key.ID {
		t.Fatalf("unexpected identity: %+v", id)
	}

	if err := svc.RevokeApiKey(ctx, project.ID, key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_ = apiKeys // keep fake referenced for clarity of intent

	_, err = svc.ValidateApiKey(ctx, plaintext)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.Unauthenticated {
		t.Fatalf("expected unauthenticated after revoke, got %v", err)
	}
}

func TestValidateApiKeyRejectsGarbage(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.ValidateApiKey(context.Background(), "not-a-real-key")
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestRotateApiKeyRevokesOldAndMintsNew(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	tenant, _ := svc.CreateTenant(ctx, "Acme", "ops@acme.example")
	project, _ := svc.CreateProject(ctx, tenant.ID, "Space Raiders")
	oldKey, oldPlain, err := svc.CreateApiKey(ctx, tenant.ID, project.ID, "main")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	newKey, newPlain, err := svc.RotateApiKey(ctx, tenant.ID, project.ID, oldKey.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newKey.ID == oldKey.ID || newPlain == oldPlain {
		t.Fatal("rotation must mint a genuinely new key")
	}
	if newKey.Name != oldKey.Name {
		t.Fatalf("expected rotated key to keep the old name, got %q", newKey.Name)
	}

	if _, err := svc.ValidateApiKey(ctx, oldPlain); err == nil {
		t.Fatal("expected the old plaintext to be rejected after rotation")
	}
	if _, err := svc.ValidateApiKey(ctx, newPlain); err != nil {
		t.Fatalf("expected the new plaintext to validate: %v", err)
	}
}
