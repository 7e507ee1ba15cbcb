package kanban

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"boardd/internal/model"
	"boardd/internal/provider"
)

// Sessions resolves bearer tokens to users and issues tokens on login.
type Sessions struct {
	users     UserStore
	providers *provider.Registry
	log       *zap.Logger
}

func NewSessions(users UserStore, providers *provider.Registry, log *zap.Logger) *Sessions {
	return &Sessions{users: users, providers: providers, log: log}
}

// Credentials is the POST /session body.
type Credentials struct {
	Provider string `json:"provider"`
	Login    string `json:"login"`
	Name     string `json:"name,omitempty"`
}

// Authenticate resolves a token to exactly one user.
func (s *Sessions) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		s.log.Warn("authentication failed: no token provided")
		return nil, &AuthError{Reason: "no token provided"}
	}
	user, err := s.users.FindByToken(ctx, token)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			s.log.Warn("authentication failed: unknown token")
			return nil, &AuthError{Reason: "invalid token"}
		}
		return nil, err
	}
	return user, nil
}

// Create finds or creates the user for the given provider credentials
// and returns it with its token. An existing user keeps its token.
func (s *Sessions) Create(ctx context.Context, creds Credentials) (*model.User, error) {
	if creds.Provider == "" || creds.Login == "" {
		return nil, &AuthError{Reason: "provider and login are required"}
	}
	if _, ok := s.providers.Get(creds.Provider); !ok {
		return nil, &AuthError{Reason: "unknown provider " + creds.Provider}
	}
	user, err := s.users.FindByProviderLogin(ctx, creds.Provider, creds.Login)
	if err == nil {
		return user, nil
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}
	user = &model.User{
		ID:       uuid.NewString(),
		Provider: creds.Provider,
		Login:    creds.Login,
		Name:     creds.Name,
		Token:    uuid.NewString(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.String("user", user.ID), zap.String("provider", creds.Provider))
	return user, nil
}
