package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"fastcodec/internal/config"
)

func (g *Gate) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (g *Gate) writeError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"error": message})
}

// handleLogin checks the submitted credentials against the configured web
// users and, on success, starts a session cookie carrying the username and
// role.
func (g *Gate) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	user := g.cfg.FindWebUser(req.Username)
	if user == nil || !checkPassword(req.Password, user.PasswordHash) {
		g.writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := g.sessions.setUser(w, r, user.Username, user.Role); err != nil {
		g.writeError(w, http.StatusInternalServerError, "saving session: "+err.Error())
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]string{
		"username": user.Username,
		"role":     user.Role,
	})
}

func (g *Gate) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := g.sessions.clear(w, r); err != nil {
		g.writeError(w, http.StatusInternalServerError, "clearing session: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gate) handleMe(w http.ResponseWriter, r *http.Request) {
	username, role, ok := g.sessions.getUser(r)
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"username": username, "role": role})
}

// ErrUserExists is returned by CreateUser when the username is already
// registered.
var ErrUserExists = errors.New("user already exists")

// CreateUser hashes password and persists a new web user to the config
// file. cmd/fastcodec does not call it.
func (g *Gate) CreateUser(username, password, role string) error {
	if g.cfg.FindWebUser(username) != nil {
		return ErrUserExists
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	g.cfg.Lock()
	g.cfg.AddWebUser(config.WebUser{Username: username, PasswordHash: hash, Role: role})
	return g.cfg.UnlockAndSave(g.cfgPath)
}

// HasUsers reports whether any web user is configured. cmd/fastcodec does
// not call it; no first-run admin prompt exists.
func (g *Gate) HasUsers() bool {
	return len(g.cfg.Web.UI.Users) > 0
}
