package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	netmail "net/mail"
	"net/url"
	"strings"
	"time"

	"jobtracker/internal/domain/user"
	"jobtracker/internal/infrastructure/mail"
	"jobtracker/internal/logger"
	"jobtracker/internal/pkg/jwt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidLink  = errors.New("invalid or expired sign-in link")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

const (
	NoticeLinkSent   = "Check your email for the login link."
	NoticeLinkFailed = "Error sending magic link."

	DefaultRedirect = "/jobs"

	magicKeyPrefix   = "auth:magic:"
	revokedKeyPrefix = "auth:revoked:"
)

// KeyStore is the short-lived key/value store behind one-time links and
// session revocation.
type KeyStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	TakeJSON(ctx context.Context, key string, out any) (bool, error)
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type Options struct {
	SiteURL string
	LinkTTL time.Duration
}

type Session struct {
	Token      string
	ExpiresAt  time.Time
	Principal  user.Principal
	RedirectTo string
}

type magicLink struct {
	Email      string `json:"email"`
	Hash       string `json:"hash"`
	RedirectTo string `json:"redirect_to"`
}

type Service struct {
	users  user.Repository
	tokens jwt.Service
	keys   KeyStore
	mailer mail.Mailer
	opts   Options
	logger *zap.Logger
}

func NewService(users user.Repository, tokens jwt.Service, keys KeyStore, mailer mail.Mailer, opts Options, log *zap.Logger) *Service {
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 15 * time.Minute
	}
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Service{
		users:  users,
		tokens: tokens,
		keys:   keys,
		mailer: mailer,
		opts:   opts,
		logger: logger.OrNop(log).Named("auth"),
	}
}

// RequestMagicLink emails a one-time sign-in link to email. Following the
// link signs the user in and lands on redirectTo.
func (s *Service) RequestMagicLink(ctx context.Context, email string, redirectTo string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}

	id, err := randomString(12)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	secret, err := randomString(32)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	link := magicLink{Email: email, Hash: string(hash), RedirectTo: safeRedirect(redirectTo)}
	if err := s.keys.SetJSON(ctx, magicKeyPrefix+id, link, s.opts.LinkTTL); err != nil {
		s.logger.Error("failed to store magic link", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	target := s.opts.SiteURL + "/auth/callback?token=" + url.QueryEscape(id+"."+secret)
	msg := mail.Message{
		To:      email,
		Subject: "Your sign-in link",
		Body:    "Follow this link to sign in:\n\n" + target + "\n\nThe link expires in " + s.opts.LinkTTL.String() + ".\n",
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send magic link", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.logger.Info("magic link sent", zap.String("email", email))
	return nil
}

// ConsumeMagicLink redeems a link token exactly once and opens a session.
func (s *Service) ConsumeMagicLink(ctx context.Context, token string) (Session, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || id == "" || secret == "" {
		return Session{}, ErrInvalidLink
	}

	var link magicLink
	found, err := s.keys.TakeJSON(ctx, magicKeyPrefix+id, &link)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !found {
		return Session{}, ErrInvalidLink
	}
	if err := bcrypt.CompareHashAndPassword([]byte(link.Hash), []byte(secret)); err != nil {
		return Session{}, ErrInvalidLink
	}

	u, err := s.users.FindOrCreateByEmail(ctx, link.Email)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	signed, claims, err := s.tokens.GenerateSessionToken(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return Session{
		Token:      signed,
		ExpiresAt:  claims.ExpiresAtTime(),
		Principal:  u.Principal(),
		RedirectTo: safeRedirect(link.RedirectTo),
	}, nil
}

// CurrentPrincipal resolves a session token. Any failure reads as signed out.
func (s *Service) CurrentPrincipal(ctx context.Context, token string) (user.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return user.Principal{}, ErrUnauthorized
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	revoked, err := s.keys.Exists(ctx, revokedKeyPrefix+claims.SessionID())
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if revoked {
		return user.Principal{}, ErrUnauthorized
	}
	return user.Principal{ID: claims.UserID, Email: claims.Email}, nil
}

// SignOut revokes the session until its natural expiry. Unknown or expired
// tokens are already signed out.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAtTime())
	if ttl <= 0 {
		return nil
	}
	if _, err := s.keys.SetIfNotExists(ctx, revokedKeyPrefix+claims.SessionID(), "1", ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ""
	}
	return strings.ToLower(addr.Address)
}

// safeRedirect keeps redirects on this site.
func safeRedirect(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return DefaultRedirect
	}
	return p
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
