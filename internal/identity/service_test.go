package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/luminacare/lumina/internal/identity"
	"github.com/luminacare/lumina/internal/shared"
)

type stubUsers struct {
	byEmail map[string]*identity.User
	byID    map[int64]*identity.User
	nextID  int64
	created []string
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubUsers) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubUsers) CreateUser(ctx context.Context, user *identity.User, role string) (int64, error) {
	s.nextID++
	s.created = append(s.created, role)
	if s.byID == nil {
		s.byID = map[int64]*identity.User{}
	}
	s.byID[s.nextID] = user
	return s.nextID, nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func newIdentityService(t *testing.T, repo identity.Repository) *identity.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := identity.NewTokenStore(client, time.Hour)
	links := identity.NewLoginLinkIssuer("test-secret", "https://app.example.com", 15*time.Minute)
	return identity.NewService(repo, tokens, links, nil, nil)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	user := &identity.User{ID: 1, Email: "nurse@example.com", PasswordHash: hash(t, "s3cret"), IsActive: true}
	repo := &stubUsers{byEmail: map[string]*identity.User{user.Email: user}}
	svc := newIdentityService(t, repo)
	ctx := context.Background()

	token, got, err := svc.Login(ctx, "Nurse@Example.com ", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("unexpected user: %+v", got)
	}
	id, err := svc.Verify(ctx, token)
	if err != nil || id.UserID != 1 {
		t.Fatalf("verify minted token: id=%+v err=%v", id, err)
	}
}

func TestLoginBadPassword(t *testing.T) {
	user := &identity.User{ID: 1, Email: "nurse@example.com", PasswordHash: hash(t, "s3cret"), IsActive: true}
	svc := newIdentityService(t, &stubUsers{byEmail: map[string]*identity.User{user.Email: user}})

	if _, _, err := svc.Login(context.Background(), user.Email, "wrong"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	user := &identity.User{ID: 1, Email: "nurse@example.com", PasswordHash: hash(t, "s3cret"), IsActive: false}
	svc := newIdentityService(t, &stubUsers{byEmail: map[string]*identity.User{user.Email: user}})

	if _, _, err := svc.Login(context.Background(), user.Email, "s3cret"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for inactive account, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	user := &identity.User{ID: 1, Email: "nurse@example.com", PasswordHash: hash(t, "s3cret"), IsActive: true}
	svc := newIdentityService(t, &stubUsers{byEmail: map[string]*identity.User{user.Email: user}})
	ctx := context.Background()

	token, _, err := svc.Login(ctx, user.Email, "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := newIdentityService(t, &stubUsers{})
	_, err := svc.CreateUser(context.Background(), identity.CreateUserInput{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "s3cret",
		Role:     "intern",
	})
	if !errors.Is(err, shared.ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed for unknown role, got %v", err)
	}
}

func TestCreateUserNormalizes(t *testing.T) {
	repo := &stubUsers{}
	svc := newIdentityService(t, repo)
	user, err := svc.CreateUser(context.Background(), identity.CreateUserInput{
		Email:    " Carer@Example.COM ",
		Name:     "  Aoife Ñuna  ",
		Password: "s3cret",
		Role:     "caregiver",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "carer@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Name != "Aoife Ñuna" {
		t.Fatalf("name not NFC-normalized: %q", user.Name)
	}
	if len(repo.created) != 1 || repo.created[0] != "caregiver" {
		t.Fatalf("role assignment not persisted: %v", repo.created)
	}
}

func TestExchangeBoundLinkCarriesGrant(t *testing.T) {
	target := &identity.User{ID: 9, Email: "owner@example.com", IsActive: true}
	repo := &stubUsers{byID: map[int64]*identity.User{9: target}}
	svc := newIdentityService(t, repo)
	ctx := context.Background()

	link, err := svc.GenerateLoginLink(ctx, 9, "grant-abc")
	if err != nil {
		t.Fatalf("generate login link: %v", err)
	}
	token, user, err := svc.ExchangeLoginLink(ctx, linkToken(t, link))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if user.ID != 9 {
		t.Fatalf("unexpected user: %+v", user)
	}
	id, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.MasqueradeToken != "grant-abc" {
		t.Fatalf("bearer token lost the grant binding: %+v", id)
	}
}

func TestGenerateLoginLinkInactiveTarget(t *testing.T) {
	target := &identity.User{ID: 9, Email: "owner@example.com", IsActive: false}
	svc := newIdentityService(t, &stubUsers{byID: map[int64]*identity.User{9: target}})

	if _, err := svc.GenerateLoginLink(context.Background(), 9, ""); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive target, got %v", err)
	}
}
