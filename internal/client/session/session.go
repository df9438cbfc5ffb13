// Package session caches the authenticated session the reconciler pushes
// under. The session provider itself is external: it issues a signed token;
// this package stores it locally, answers "is there a usable session",
// and wipes everything on reset.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/avolkov/leadbook/internal/client/repositories/metadata"
	"github.com/avolkov/leadbook/internal/common"
	"github.com/avolkov/leadbook/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Metadata keys for cached session state.
const (
	keyToken   = "session_token"
	keyUserId  = "session_user_id"
	keyExpires = "session_expires_at"
)

// Session is the credential snapshot consumed by the reconciler.
type Session struct {
	Token     string
	UserId    string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Manager persists and validates the cached session.
type Manager struct {
	repo metadata.Repository
	log  logging.Logger
	now  func() time.Time
}

func NewManager(repo metadata.Repository, log logging.Logger) *Manager {
	return &Manager{repo: repo, log: log, now: time.Now}
}

// SaveFromToken extracts user id and expiry from the issued token and caches
// the session. The signature is not verified here: the remote store is the
// verifier, the client only needs the claims for expiry checks. When the
// token carries no user id claim, fallbackUserId (the sign-in identity) is
// persisted instead so a restart restores the same owner.
func (m *Manager) SaveFromToken(ctx context.Context, token, fallbackUserId string) (*Session, error) {
	userId, expiresAt, err := parseClaims(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if userId == "" {
		userId = fallbackUserId
	}

	s := &Session{Token: token, UserId: userId, ExpiresAt: expiresAt}
	if err := m.repo.Set(ctx, keyToken, []byte(token)); err != nil {
		return nil, err
	}
	if err := m.repo.Set(ctx, keyUserId, []byte(userId)); err != nil {
		return nil, err
	}
	expires := strconv.FormatInt(expiresAt.Unix(), 10)
	if expiresAt.IsZero() {
		expires = "0"
	}
	if err := m.repo.Set(ctx, keyExpires, []byte(expires)); err != nil {
		return nil, err
	}

	m.log.Info(ctx, "session cached", "user_id", userId, "expires_at", expiresAt)
	return s, nil
}

// Current returns the cached session. A missing session yields
// common.ErrNoSession and an expired one common.ErrSessionExpired; both must
// be treated as "authentication required", never as a network problem.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	token, err := m.repo.Get(ctx, keyToken)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 {
		return nil, common.ErrNoSession
	}

	userId, err := m.repo.Get(ctx, keyUserId)
	if err != nil {
		return nil, err
	}
	rawExpires, err := m.repo.Get(ctx, keyExpires)
	if err != nil {
		return nil, err
	}

	s := &Session{Token: string(token), UserId: string(userId)}
	if len(rawExpires) > 0 {
		unix, err := strconv.ParseInt(string(rawExpires), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt session expiry: %w", err)
		}
		if unix > 0 {
			s.ExpiresAt = time.Unix(unix, 0).UTC()
		}
	}

	if s.Expired(m.now()) {
		return nil, common.ErrSessionExpired
	}
	return s, nil
}

// HasSession reports whether a usable session exists.
func (m *Manager) HasSession(ctx context.Context) bool {
	_, err := m.Current(ctx)
	return err == nil
}

// Reset wipes all cached session state. This is the last-resort remediation
// for stuck sessions and is always user-confirmed upstream.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	m.log.Warn(ctx, "session state reset")
	return nil
}

func parseClaims(token string) (userId string, expiresAt time.Time, err error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err = parser.ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, err
	}

	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		expiresAt = exp.Time.UTC()
	}
	if sub, subErr := claims.GetSubject(); subErr == nil && sub != "" {
		userId = sub
	} else if id, ok := claims["ID"].(string); ok {
		// SurrealDB scope tokens carry the record id in ID
		userId = id
	}
	return userId, expiresAt, nil
}
