package web

import (
	"github.com/go-chi/chi/v5"

	"fastcodec/internal/config"
)

// Gate is the session-auth layer fronting the codec service's admin
// actions: login/logout/whoami plus the RequireAuth/RequireAdmin
// middleware internal/api.Server.SetAdminMiddleware installs.
type Gate struct {
	cfg      *config.Config
	cfgPath  string
	sessions *sessionStore
}

// NewGate builds a Gate backed by cfg's web users and session secret.
// cfgPath is used to persist new users (CreateUser) back to disk the way
// internal/config's other mutators do.
func NewGate(cfg *config.Config, cfgPath string) *Gate {
	return &Gate{
		cfg:      cfg,
		cfgPath:  cfgPath,
		sessions: newSessionStore(cfg.Web.UI.SessionSecret),
	}
}

// Router returns the /login, /logout and /me endpoints.
func (g *Gate) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", g.handleLogin)
	r.Post("/logout", g.handleLogout)
	r.Get("/me", g.handleMe)
	return r
}
