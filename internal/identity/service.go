package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/shared"
	"github.com/luminacare/lumina/jobs"
)

// Service wraps identity business rules: credential checks, bearer token
// issuance, one-time login links, and privileged account creation.
type Service struct {
	repo   Repository
	tokens *TokenStore
	links  *LoginLinkIssuer
	tasks  *asynq.Client
	logger *slog.Logger
}

// NewService constructs a new Service. The asynq client is optional; when
// absent no welcome email is queued on account creation.
func NewService(repo Repository, tokens *TokenStore, links *LoginLinkIssuer, tasks *asynq.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, links: links, tasks: tasks, logger: logger}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and mints a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("identity: issue token: %w", err)
	}
	return token, user, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Verify resolves a bearer token to the caller identity.
func (s *Service) Verify(ctx context.Context, token string) (*shared.Identity, error) {
	return s.tokens.Verify(ctx, token)
}

// GetUser fetches a user account by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateUserInput carries the fields for privileged account creation.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
	TenantID *int64
}

// CreateUser provisions an account with its role assignment and queues a
// welcome email carrying a one-time login link.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if !access.Known(access.Role(in.Role)) {
		return nil, fmt.Errorf("identity: unknown role %q: %w", in.Role, shared.ErrOperationFailed)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	user := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         norm.NFC.String(strings.TrimSpace(in.Name)),
		PasswordHash: string(hash),
		TenantID:     in.TenantID,
	}
	id, err := s.repo.CreateUser(ctx, user, in.Role)
	if err != nil {
		return nil, err
	}
	user.ID = id
	user.IsActive = true
	s.queueWelcomeEmail(user)
	return user, nil
}

// GenerateLoginLink resolves the target account and mints a one-time login
// link, optionally bound to a masquerade grant token.
func (s *Service) GenerateLoginLink(ctx context.Context, targetUserID int64, masqueradeToken string) (string, error) {
	user, err := s.repo.FindByID(ctx, targetUserID)
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", shared.ErrNotFound
	}
	return s.links.Mint(user.ID, masqueradeToken, "")
}

// ExchangeLoginLink trades a valid link token for a bearer token. Tokens
// minted through a masquerade grant come back bound to that grant.
func (s *Service) ExchangeLoginLink(ctx context.Context, linkToken string) (string, *User, error) {
	claims, err := s.links.Parse(linkToken)
	if err != nil {
		return "", nil, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", nil, shared.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return "", nil, shared.ErrUnauthenticated
	}
	var token string
	if claims.MasqueradeToken != "" {
		token, err = s.tokens.IssueBound(ctx, user.ID, claims.MasqueradeToken)
	} else {
		token, err = s.tokens.Issue(ctx, user.ID)
	}
	if err != nil {
		return "", nil, fmt.Errorf("identity: issue token: %w", err)
	}
	return token, user, nil
}

func (s *Service) queueWelcomeEmail(user *User) {
	if s.tasks == nil {
		return
	}
	link, err := s.links.Mint(user.ID, "", "")
	if err != nil {
		s.logger.Warn("mint welcome link", slog.Any("error", err))
		return
	}
	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{
		To:      user.Email,
		Subject: "Welcome to Lumina",
		Body:    "Hi " + user.Name + ",\n\nYour account is ready. Sign in here: " + link + "\n",
	})
	if err != nil {
		s.logger.Warn("build welcome email task", slog.Any("error", err))
		return
	}
	if _, err := s.tasks.Enqueue(task, asynq.Queue(jobs.QueueDefault)); err != nil {
		s.logger.Warn("queue welcome email", slog.Any("error", err))
	}
}
