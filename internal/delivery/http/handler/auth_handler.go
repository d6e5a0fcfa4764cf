package handler

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"jobtracker/internal/delivery/http/dto"
	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/editor"
	"jobtracker/internal/pkg/response"
	"jobtracker/internal/session"
	ucauth "jobtracker/internal/usecase/auth"

	"github.com/gofiber/fiber/v3"
)

type MagicLinkService interface {
	RequestMagicLink(ctx context.Context, email string, redirectTo string) error
	ConsumeMagicLink(ctx context.Context, token string) (ucauth.Session, error)
}

// SessionCloser ends a session and drops its workspace.
type SessionCloser interface {
	Close(ctx context.Context, token string) (session.Result, error)
}

type AuthHandler struct {
	svc          MagicLinkService
	sessions     SessionCloser
	secureCookie bool
}

func NewAuthHandler(svc MagicLinkService, sessions SessionCloser, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, secureCookie: secureCookie}
}

func (h *AuthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/magic-link", h.RequestMagicLink)
	r.Post("/sign-out", h.SignOut)
}

// RegisterProtectedRoutes adds the routes that need a session.
func (h *AuthHandler) RegisterProtectedRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/me", h.Me)
}

// RegisterPageRoutes adds the magic link landing route.
func (h *AuthHandler) RegisterPageRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/auth/callback", h.Callback)
}

func (h *AuthHandler) RequestMagicLink(c fiber.Ctx) error {
	var req dto.MagicLinkRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	if err := h.svc.RequestMagicLink(c.Context(), req.Email, req.RedirectTo); err != nil {
		notice := editor.Notice{Message: ucauth.NoticeLinkFailed, Field: "email"}
		if errors.Is(err, ucauth.ErrInvalidInput) {
			return middleware.NewAppError(fiber.StatusBadRequest, notice.Message, notice, err)
		}
		notice.Field = ""
		return middleware.NewAppError(fiber.StatusBadGateway, notice.Message, notice, err)
	}
	return response.Success(c, fiber.StatusOK, ucauth.NoticeLinkSent, nil)
}

// Callback redeems the emailed link, sets the session cookie and lands on
// the link's redirect target.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	sess, err := h.svc.ConsumeMagicLink(c.Context(), c.Query("token"))
	if err != nil {
		reason := "invalid_link"
		if !errors.Is(err, ucauth.ErrInvalidLink) {
			reason = "unavailable"
		}
		return c.Redirect().Status(fiber.StatusSeeOther).To(session.SignInRoute + "?error=" + url.QueryEscape(reason))
	}

	h.setSessionCookie(c, sess.Token, sess.ExpiresAt)
	return c.Redirect().Status(fiber.StatusSeeOther).To(sess.RedirectTo)
}

func (h *AuthHandler) SignOut(c fiber.Ctx) error {
	token, _ := middleware.TokenFromRequest(c)
	res := session.Result{Decision: session.DecisionRedirect, RedirectTo: session.SignInRoute}
	if strings.TrimSpace(token) != "" && h.sessions != nil {
		r, err := h.sessions.Close(c.Context(), token)
		if err != nil {
			return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
		}
		res = r
	}

	h.setSessionCookie(c, "", time.Time{})
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{"redirect_to": res.RedirectTo})
}

func (h *AuthHandler) Me(c fiber.Ctx) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.PrincipalResponse{ID: p.ID, Email: p.Email})
}

// setSessionCookie writes the session cookie; an empty token clears it.
func (h *AuthHandler) setSessionCookie(c fiber.Ctx, token string, expires time.Time) {
	ck := &fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if token == "" {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	} else {
		ck.Expires = expires
	}
	c.Cookie(ck)
}
