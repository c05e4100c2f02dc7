package orgs

import (
	"context"
	"strings"
)

// Service handles organization business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all organizations.
func (s *Service) List(ctx context.Context) ([]Organization, error) {
	return s.repo.List(ctx)
}

// Get fetches one organization.
func (s *Service) Get(ctx context.Context, id int64) (*Organization, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions a new tenant.
func (s *Service) Create(ctx context.Context, name, plan string) (*Organization, error) {
	org := &Organization{
		Name: strings.TrimSpace(name),
		Slug: slugify(name),
		Plan: plan,
	}
	id, err := s.repo.Create(ctx, org)
	if err != nil {
		return nil, err
	}
	org.ID = id
	org.IsActive = true
	return org, nil
}

// Update modifies an existing tenant.
func (s *Service) Update(ctx context.Context, org *Organization) error {
	return s.repo.Update(ctx, org)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	return strings.Trim(slug, "-")
}
