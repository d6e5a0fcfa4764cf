package middleware

import (
	"context"
	"strings"

	"jobtracker/internal/domain/user"
	"jobtracker/internal/listsync"
	"jobtracker/internal/session"

	"github.com/gofiber/fiber/v3"
)

const (
	SessionCookie = "jobtracker_session"

	CtxPrincipalKey = "principal"
	CtxWorkspaceKey = "workspace"
	CtxTokenKey     = "session_token"
)

// WorkspaceOpener runs the session guard and hands out the caller's
// synchronizer.
type WorkspaceOpener interface {
	Open(ctx context.Context, token string) (*listsync.Synchronizer, session.Result)
}

type AuthMiddleware struct {
	workspaces WorkspaceOpener
}

func NewAuthMiddleware(workspaces WorkspaceOpener) *AuthMiddleware {
	return &AuthMiddleware{workspaces: workspaces}
}

// Middleware guards API routes and answers 401 when there is no session.
func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !m.enter(c) {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}
		return c.Next()
	}
}

// PageGate guards page routes and redirects to the sign-in route when
// there is no session.
func (m *AuthMiddleware) PageGate() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !m.enter(c) {
			return c.Redirect().Status(fiber.StatusSeeOther).To(session.SignInRoute)
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) enter(c fiber.Ctx) bool {
	token, ok := TokenFromRequest(c)
	if !ok || m == nil || m.workspaces == nil {
		return false
	}
	s, res := m.workspaces.Open(c.Context(), token)
	if res.Decision != session.DecisionAllow || s == nil {
		return false
	}
	c.Locals(CtxTokenKey, token)
	c.Locals(CtxPrincipalKey, res.Principal)
	c.Locals(CtxWorkspaceKey, s)
	return true
}

// TokenFromRequest reads the session token from the bearer header or the
// session cookie.
func TokenFromRequest(c fiber.Ctx) (string, bool) {
	if token, ok := bearerTokenFromHeader(c.Get("Authorization")); ok {
		return token, true
	}
	if token := strings.TrimSpace(c.Cookies(SessionCookie)); token != "" {
		return token, true
	}
	return "", false
}

func Workspace(c fiber.Ctx) (*listsync.Synchronizer, bool) {
	s, ok := c.Locals(CtxWorkspaceKey).(*listsync.Synchronizer)
	return s, ok && s != nil
}

func Principal(c fiber.Ctx) (user.Principal, bool) {
	p, ok := c.Locals(CtxPrincipalKey).(user.Principal)
	return p, ok && !p.IsZero()
}

func SessionToken(c fiber.Ctx) string {
	t, _ := c.Locals(CtxTokenKey).(string)
	return t
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
