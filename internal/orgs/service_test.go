package orgs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminacare/lumina/internal/orgs"
	"github.com/luminacare/lumina/internal/shared"
	_ "github.com/luminacare/lumina/testing"
)

type stubOrgs struct {
	byID    map[int64]*orgs.Organization
	nextID  int64
	updated []int64
}

func (s *stubOrgs) List(ctx context.Context) ([]orgs.Organization, error) {
	var out []orgs.Organization
	for _, org := range s.byID {
		out = append(out, *org)
	}
	return out, nil
}

func (s *stubOrgs) Get(ctx context.Context, id int64) (*orgs.Organization, error) {
	org, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return org, nil
}

func (s *stubOrgs) Create(ctx context.Context, org *orgs.Organization) (int64, error) {
	s.nextID++
	if s.byID == nil {
		s.byID = map[int64]*orgs.Organization{}
	}
	s.byID[s.nextID] = org
	return s.nextID, nil
}

func (s *stubOrgs) Update(ctx context.Context, org *orgs.Organization) error {
	if _, ok := s.byID[org.ID]; !ok {
		return shared.ErrNotFound
	}
	s.byID[org.ID] = org
	s.updated = append(s.updated, org.ID)
	return nil
}

func TestCreateSlugifiesName(t *testing.T) {
	repo := &stubOrgs{}
	svc := orgs.NewService(repo)

	org, err := svc.Create(context.Background(), "  Sunrise Care Home  ", "standard")
	require.NoError(t, err)
	assert.Equal(t, "Sunrise Care Home", org.Name)
	assert.Equal(t, "sunrise-care-home", org.Slug)
	assert.Equal(t, int64(1), org.ID)
	assert.True(t, org.IsActive)
}

func TestCreateSlugDropsNonAlphanumerics(t *testing.T) {
	svc := orgs.NewService(&stubOrgs{})
	org, err := svc.Create(context.Background(), "St. Mary's Clinic #2", "starter")
	require.NoError(t, err)
	assert.Equal(t, "st-marys-clinic-2", org.Slug)
}

func TestGetUnknownOrganization(t *testing.T) {
	svc := orgs.NewService(&stubOrgs{})
	_, err := svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateUnknownOrganization(t *testing.T) {
	svc := orgs.NewService(&stubOrgs{})
	err := svc.Update(context.Background(), &orgs.Organization{ID: 99, Name: "Gone", Plan: "starter"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
