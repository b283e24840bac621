package web

import "net/http"

// RequireAuth rejects requests without a valid session cookie, regardless
// of role. Use for routes that only need "is someone logged in".
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := g.sessions.getUser(r); !ok {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without a valid admin session, the gate
// internal/api.Server.SetAdminMiddleware installs in front of template
// uploads, deletes and dictionary resets.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, role, ok := g.sessions.getUser(r)
		if !ok {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}
		if !isAdmin(role) {
			http.Error(w, `{"error":"admin privileges required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
