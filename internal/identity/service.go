package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/repository"
	"github.com/rankforge/leaderboard/internal/util"
)

var ErrKeyLimitReached = errors.New("api key limit reached for plan")

// Service owns tenant, project, and api key lifecycle: creation, rotation,
// revocation, and the plaintext-to-row lookup used by gateway auth.
type Service struct {
	tenants      repository.TenantsRepository
	projects     repository.ProjectsRepository
	apiKeys      repository.ApiKeysRepository
	subscriptions repository.SubscriptionsRepository
	clock        clock.Clock
}

func New(
	tenants repository.TenantsRepository,
	projects repository.ProjectsRepository,
	apiKeys repository.ApiKeysRepository,
	subscriptions repository.SubscriptionsRepository,
	clk clock.Clock,
) *Service {
	return &Service{
		tenants:      tenants,
		projects:     projects,
		apiKeys:      apiKeys,
		subscriptions: subscriptions,
		clock:        clk,
	}
}

func (s *Service) CreateTenant(ctx context.Context, name, email string) (model.Tenant, error) {
	existing, err := s.tenants.GetByEmail(ctx, email)
	if err != nil {
		return model.Tenant{}, fmt.Errorf("lookup tenant by email: %w", err)
	}
	if existing != nil {
		return model.Tenant{}, apperr.New(apperr.Conflict, "a tenant with this email already exists")
	}

	t := model.Tenant{
		ID:        util.New(),
		Name:      name,
		Email:     email,
		CreatedAt: s.clock.Now(),
	}
	if err := s.tenants.Insert(ctx, t); err != nil {
		return model.Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	return t, nil
}

func (s *Service) CreateProject(ctx context.Context, tenantID, name string) (model.Project, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return model.Project{}, fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant == nil {
		return model.Project{}, apperr.New(apperr.NotFound, "tenant not found")
	}

	p := model.Project{
		ID:        util.New(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.projects.Insert(ctx, p); err != nil {
		return model.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// CreateApiKey mints a new key, enforcing the plan's api key ceiling before
// inserting. It returns the plaintext exactly once; only the argon2id hash
// is ever persisted.
func (s *Service) CreateApiKey(ctx context.Context, tenantID, projectID, name string) (model.ApiKey, string, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return model.ApiKey{}, "", fmt.Errorf("lookup project: %w", err)
	}
	if project == nil || project.TenantID != tenantID {
		return model.ApiKey{}, "", apperr.New(apperr.NotFound, "project not found")
	}

	sub, err := s.subscriptions.GetActiveByTenant(ctx, tenantID)
	if err != nil {
		return model.ApiKey{}, "", fmt.Errorf("lookup subscription: %w", err)
	}
	plan := model.PlanFree
	if sub != nil {
		plan = sub.PlanType
	}

	active, err := s.apiKeys.CountActiveByProject(ctx, projectID)
	if err != nil {
		return model.ApiKey{}, "", fmt.Errorf("count active keys: %w", err)
	}
	if active >= model.Limits(plan).ApiKeys {
		return model.ApiKey{}, "", apperr.WithDetails(apperr.QuotaExceeded, "api key limit reached for plan", map[string]any{
			"limit": model.Limits(plan).ApiKeys,
		})
	}

	plaintext, err := GenerateApiKey()
	if err != nil {
		return model.ApiKey{}, "", fmt.Errorf("generate api key: %w", err)
	}
	hash, err := HashApiKey(plaintext)
	if err != nil {
		return model.ApiKey{}, "", fmt.Errorf("hash api key: %w", err)
	}

	k := model.ApiKey{
		ID:         util.New(),
		ProjectID:  projectID,
		Name:       name,
		LookupHash: LookupHash(plaintext),
		KeyHash:    hash,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.apiKeys.Insert(ctx, k); err != nil {
		return model.ApiKey{}, "", fmt.Errorf("insert api key: %w", err)
	}
	return k, plaintext, nil
}

// RotateApiKey revokes the old key and mints a replacement with the same
// name, under the same quota check as CreateApiKey.
func (s *Service) RotateApiKey(ctx context.Context, tenantID, projectID, oldKeyID string) (model.ApiKey, string, error) {
	old, err := s.apiKeys.GetByID(ctx, oldKeyID)
	if err != nil {
		return model.ApiKey{}, "", fmt.Errorf("lookup api key: %w", err)
	}
	if old == nil || old.ProjectID != projectID {
		return model.ApiKey{}, "", apperr.New(apperr.NotFound, "api key not found")
	}
	if err := s.apiKeys.Revoke(ctx, oldKeyID, s.clock.Now()); err != nil {
		return model.ApiKey{}, "", fmt.Errorf("revoke old api key: %w", err)
	}
	return s.CreateApiKey(ctx, tenantID, projectID, old.Name)
}

func (s *Service) RevokeApiKey(ctx context.Context, projectID, keyID string) error {
	k, err := s.apiKeys.GetByID(ctx, keyID)
	if err != nil {
		return fmt.Errorf("lookup api key: %w", err)
	}
	if k == nil || k.ProjectID != projectID {
		return apperr.New(apperr.NotFound, "api key not found")
	}
	if err := s.apiKeys.Revoke(ctx, keyID, s.clock.Now()); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

func (s *Service) ListKeys(ctx context.Context, projectID string) ([]model.ApiKey, error) {
	keys, err := s.apiKeys.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// Identity is what gateway auth resolves a plaintext key down to.
type Identity struct {
	Tenant  model.Tenant
	Project model.Project
	ApiKey  model.ApiKey
	Plan    model.PlanType
}

// ValidateApiKey looks up the single active row whose deterministic
// LookupHash matches, then runs a constant-time argon2 compare against its
// KeyHash. Callers on the hot path should consult cache.AuthCache first;
// this method is the cache-miss fallback and the source of truth.
func (s *Service) ValidateApiKey(ctx context.Context, plaintext string) (Identity, error) {
	if plaintext == "" {
		return Identity{}, apperr.New(apperr.Unauthenticated, "missing api key")
	}

	candidate, err := s.apiKeys.GetActiveByLookupHash(ctx, LookupHash(plaintext))
	if err != nil {
		return Identity{}, fmt.Errorf("lookup api key: %w", err)
	}
	if candidate == nil || !VerifyApiKey(plaintext, candidate.KeyHash) {
		return Identity{}, apperr.New(apperr.Unauthenticated, "invalid api key")
	}
	matched := candidate

	project, err := s.projects.GetByID(ctx, matched.ProjectID)
	if err != nil {
		return Identity{}, fmt.Errorf("lookup project: %w", err)
	}
	if project == nil {
		return Identity{}, apperr.New(apperr.Unauthenticated, "invalid api key")
	}
	tenant, err := s.tenants.GetByID(ctx, project.TenantID)
	if err != nil {
		return Identity{}, fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant == nil {
		return Identity{}, apperr.New(apperr.Unauthenticated, "invalid api key")
	}

	sub, err := s.subscriptions.GetActiveByTenant(ctx, tenant.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("lookup subscription: %w", err)
	}
	plan := model.PlanFree
	if sub != nil {
		plan = sub.PlanType
	}

	_ = s.apiKeys.TouchLastUsed(ctx, matched.ID, s.clock.Now())

	return Identity{Tenant: *tenant, Project: *project, ApiKey: *matched, Plan: plan}, nil
}
