// Package session gates page entry on an authenticated principal.
package session

import (
	"context"
	"sync"

	"jobtracker/internal/domain/user"
)

const SignInRoute = "/login"

type Decision int

const (
	DecisionAllow Decision = iota
	DecisionRedirect
)

func (d Decision) String() string {
	if d == DecisionAllow {
		return "allow"
	}
	return "redirect"
}

type Authenticator interface {
	CurrentPrincipal(ctx context.Context, token string) (user.Principal, error)
	SignOut(ctx context.Context, token string) error
}

type Result struct {
	Decision   Decision
	Principal  user.Principal
	RedirectTo string
}

func redirect() Result {
	return Result{Decision: DecisionRedirect, RedirectTo: SignInRoute}
}

// Guard checks the principal on every entry. The first successful entry
// flips the authenticated flag and runs onAuthenticated exactly once; that
// callback is what triggers the initial list load.
type Guard struct {
	auth            Authenticator
	onAuthenticated func(ctx context.Context, p user.Principal)

	mu            sync.Mutex
	authenticated bool
}

func NewGuard(auth Authenticator, onAuthenticated func(ctx context.Context, p user.Principal)) *Guard {
	return &Guard{auth: auth, onAuthenticated: onAuthenticated}
}

// Enter never retries; an auth error is treated the same as no principal.
func (g *Guard) Enter(ctx context.Context, token string) Result {
	p, err := g.auth.CurrentPrincipal(ctx, token)
	if err != nil || p.IsZero() {
		return redirect()
	}

	g.mu.Lock()
	first := !g.authenticated
	g.authenticated = true
	if first && g.onAuthenticated != nil {
		g.onAuthenticated(ctx, p)
	}
	g.mu.Unlock()

	return Result{Decision: DecisionAllow, Principal: p}
}

func (g *Guard) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// SignOut always ends on the sign-in route, even when revocation fails.
func (g *Guard) SignOut(ctx context.Context, token string) (Result, error) {
	err := g.auth.SignOut(ctx, token)
	g.mu.Lock()
	g.authenticated = false
	g.mu.Unlock()
	return redirect(), err
}
