package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minjcho/auth-service/internal/audit"
	"github.com/minjcho/auth-service/internal/events"
	"github.com/minjcho/auth-service/internal/hash"
	"github.com/minjcho/auth-service/internal/logging"
	"github.com/minjcho/auth-service/internal/models"
	"github.com/minjcho/auth-service/internal/repo"
	"github.com/minjcho/auth-service/internal/tokens"
)

const minPasswordLen = 8

type AuthService struct {
	Repo  *repo.GormRepo
	Codec *tokens.Codec

	// Events and Audit are optional collaborators; nil-safe.
	Events *events.Producer
	Audit  *audit.Indexer

	// Now is injectable for tests; time.Now when nil.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// UserProjection is the public view of a user. Password hash and refresh
// token never appear here.
type UserProjection struct {
	Username    string      `json:"username"`
	Nickname    string      `json:"nickname"`
	Authorities []Authority `json:"authorities"`
}

type Authority struct {
	AuthorityName string `json:"authorityName"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	AccessExp  time.Time `json:"-"`
	RefreshExp time.Time `json:"-"`
}

func projectUser(u *models.User) *UserProjection {
	authorities := make([]Authority, 0, len(u.Authorities))
	for _, a := range u.Authorities {
		authorities = append(authorities, Authority{AuthorityName: string(a.AuthorityName)})
	}
	return &UserProjection{
		Username:    u.Username,
		Nickname:    u.Nickname,
		Authorities: authorities,
	}
}

func (s *AuthService) Signup(ctx context.Context, username, password, nickname string) (*UserProjection, error) {
	return s.createUser(ctx, username, password, nickname, models.AuthorityUser)
}

// CreateAdmin is reachable only through the ADMIN-gated route; it is the
// same transition as Signup with both grants assigned.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password, nickname string) (*UserProjection, error) {
	return s.createUser(ctx, username, password, nickname, models.AuthorityUser, models.AuthorityAdmin)
}

func (s *AuthService) createUser(ctx context.Context, username, password, nickname string, grants ...models.AuthorityName) (*UserProjection, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	username = strings.TrimSpace(username)
	nickname = strings.TrimSpace(nickname)
	if username == "" || password == "" || nickname == "" {
		return nil, ErrMissingField
	}
	if len(password) < minPasswordLen {
		return nil, ErrInvalidPassword
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash password", "error", err)
		return nil, ErrServer
	}

	authorities := make([]models.UserAuthority, 0, len(grants))
	for _, g := range grants {
		authorities = append(authorities, models.UserAuthority{AuthorityName: g})
	}
	user := models.User{
		Username:     username,
		PasswordHash: pwHash,
		Nickname:     nickname,
		Authorities:  authorities,
	}

	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserExists) {
			return nil, ErrUsernameExists
		}
		l.Error("signup_failed", "error", err)
		return nil, ErrServer
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})
	s.auditWrite(ctx, audit.Entry{Event: "signup", UserID: user.ID, Username: user.Username, At: s.now()})

	l.Info("signup_successful", "user_id", user.ID)
	return projectUser(&user), nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrMissingField
	}

	user, err := s.Repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// Same error as a wrong password so usernames cannot be
			// enumerated.
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, ErrServer
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, ErrServer
	}

	if err := s.Repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		l.Error("login_failed", "reason", "cannot stamp last login", "error", err)
		return nil, ErrServer
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})
	s.auditWrite(ctx, audit.Entry{Event: "login", UserID: user.ID, Username: user.Username, At: s.now()})

	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

// ValidateRefresh is the refresh-token authentication check: signature,
// expiry, blacklist, and the match against the user's currently-stored
// refresh token. The stored-token comparison is what makes every refresh
// token single-use after rotation.
func (s *AuthService) ValidateRefresh(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, ErrNoRefreshToken
	}

	claims, err := s.Codec.ParseRefresh(raw)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.Repo.IsRevoked(ctx, raw)
	if err != nil {
		logging.FromContext(ctx).Error("refresh_failed", "error", err)
		return nil, ErrServer
	}
	if revoked {
		return nil, ErrInvalidRefreshToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.Repo.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		logging.FromContext(ctx).Error("refresh_failed", "error", err)
		return nil, ErrServer
	}

	if user.RefreshToken == nil || *user.RefreshToken != raw {
		return nil, ErrInvalidRefreshToken
	}
	return user, nil
}

// Refresh rotates the token pair. The old refresh token is blacklisted
// before the overwrite lands, closing the replay window in between.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	user, err := s.ValidateRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.Revoke(ctx, raw, models.ReasonRotation, s.now()); err != nil {
		l.Error("refresh_failed", "reason", "cannot revoke old token", "error", err)
		return nil, ErrServer
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("refresh_failed", "error", err)
		return nil, ErrServer
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":   "token_refreshed",
		"userID": user.ID,
	})
	s.auditWrite(ctx, audit.Entry{Event: "refresh", UserID: user.ID, Username: user.Username, At: s.now()})

	l.Info("refresh_successful", "user_id", user.ID)
	return pair, nil
}

// Logout blacklists the presented access token and clears the stored
// refresh token, so the session's refresh token dies at the comparison
// step even though it is not separately revoked.
func (s *AuthService) Logout(ctx context.Context, user *models.User, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if err := s.Repo.Revoke(ctx, accessToken, models.ReasonLogout, s.now()); err != nil {
		l.Error("logout_failed", "reason", "cannot revoke access token", "error", err)
		return ErrServer
	}

	if err := s.Repo.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		l.Error("logout_failed", "reason", "cannot clear refresh token", "error", err)
		return ErrServer
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":   "user_logged_out",
		"userID": user.ID,
	})
	s.auditWrite(ctx, audit.Entry{Event: "logout", UserID: user.ID, Username: user.Username, At: s.now()})

	l.Info("logout_successful", "user_id", user.ID)
	return nil
}

// issuePair mints an access/refresh pair and overwrites the stored
// refresh token, invalidating any previous one.
func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	subject := strconv.FormatUint(uint64(user.ID), 10)

	access, accessExp, err := s.Codec.SignAccess(subject, user.AuthorityNames())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshExp, err := s.Codec.SignRefresh(subject)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.Repo.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, userID uint, event map[string]any) {
	if err := s.Events.Publish(ctx, strconv.FormatUint(uint64(userID), 10), event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "error", err)
	}
}

func (s *AuthService) auditWrite(ctx context.Context, e audit.Entry) {
	if err := s.Audit.Write(ctx, e); err != nil {
		logging.FromContext(ctx).Error("audit_write_failed", "error", err)
	}
}
