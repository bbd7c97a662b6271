package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ndatsenko/pulsemon/internal/hash"
	"github.com/ndatsenko/pulsemon/internal/logging"
	"github.com/ndatsenko/pulsemon/internal/models"
	"github.com/ndatsenko/pulsemon/internal/mykafka"
	"github.com/ndatsenko/pulsemon/internal/rolecache"
	"github.com/ndatsenko/pulsemon/internal/session"
	"github.com/ndatsenko/pulsemon/internal/store"
	"github.com/ndatsenko/pulsemon/internal/token"
)

var (
	// ErrInvalidCredentials covers unknown identifier, wrong password and
	// disabled account alike, so responses cannot be used to enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("username, email and password are required")
	ErrUserExists         = store.ErrUserExists
)

type AuthService struct {
	Users     *store.UserStore
	Roles     *store.RoleStore
	Sessions  *session.Store
	RoleCache *rolecache.Cache
	Producer  *mykafka.Producer

	Secret   []byte
	TokenTTL time.Duration
}

type LoginResult struct {
	Token string
	User  *models.User
	Roles []string
}

// Register creates an enabled user with the default role assigned. Duplicate
// username or email surfaces as ErrUserExists so the handler can answer 409
// instead of a generic 500.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrValidation
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("password hash failed", "error", err)
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Enabled:      true,
	}
	if err := s.Users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			l.Warn("registration conflict", "username", username)
			return nil, ErrUserExists
		}
		l.Error("user create failed", "error", err)
		return nil, err
	}

	if err := s.Roles.Assign(ctx, user.ID, store.RoleUser); err != nil {
		// The account exists but cannot authenticate anywhere until it has a
		// role; report the failure rather than hand back a locked-out user.
		l.Error("default role assignment failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, "user_events", user.ID, map[string]interface{}{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

// Login authenticates by username or email and returns a signed token with a
// matching session row. Every failure mode is ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("user lookup failed", "error", err)
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		l.Warn("login attempt on disabled account", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	roles, err := s.Roles.RolesForUser(ctx, user.ID)
	if err != nil {
		l.Error("role fetch failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	tokenStr, err := token.Issue(user.ID, user.Username, roles, s.Secret, s.TokenTTL)
	if err != nil {
		l.Error("token issue failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	if err := s.Sessions.Create(ctx, tokenStr, user.ID, s.TokenTTL); err != nil {
		l.Error("session create failed", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.RoleCache.Put(user.ID, roles, 0)

	s.publish(ctx, "user_events", user.ID, map[string]interface{}{
		"type":     "user_logged_in",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return &LoginResult{Token: tokenStr, User: user, Roles: roles}, nil
}

// Logout revokes the token's session. Idempotent: a second logout simply
// reports false.
func (s *AuthService) Logout(ctx context.Context, tokenStr string) bool {
	revoked := s.Sessions.Revoke(ctx, tokenStr)
	if revoked {
		logging.FromContext(ctx).Info("session revoked", "svc", "auth.logout")
	}
	return revoked
}

// AssignRole grants a role and invalidates the user's cached role set before
// returning, so a request issued after this response sees the new role.
func (s *AuthService) AssignRole(ctx context.Context, userID uint, roleName string) error {
	if err := s.Roles.Assign(ctx, userID, roleName); err != nil {
		return err
	}
	s.RoleCache.Invalidate(userID)
	return nil
}

// RemoveRole revokes a role with the same cache discipline as AssignRole.
func (s *AuthService) RemoveRole(ctx context.Context, userID uint, roleName string) error {
	if err := s.Roles.Remove(ctx, userID, roleName); err != nil {
		return err
	}
	s.RoleCache.Invalidate(userID)
	return nil
}

func (s *AuthService) publish(ctx context.Context, topic string, userID uint, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, topic, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", topic, "error", err)
	}
}
