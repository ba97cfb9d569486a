package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/s/campus/internal/app"
	"github.com/s/campus/internal/auth"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/storage"
)

const (
	SessionName = "session"

	sessionUID   = "uid"
	sessionEmail = "email"
	sessionName  = "name"
	sessionPic   = "picture_url"
	sessionState = "oauth_state"
)

type Handler struct {
	App      *app.App
	Store    *sessions.CookieStore
	Auth     auth.Provider
	Validate *validator.Validate
	Log      *logger.Logger
}

func NewHandler(a *app.App, store *sessions.CookieStore, provider auth.Provider, log *logger.Logger) *Handler {
	return &Handler{
		App:      a,
		Store:    store,
		Auth:     provider,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Log:      log.With("component", "http"),
	}
}

const sessionMaxAge = 86400 * 7

// NewSessionStore is the cookie store used for sign-in sessions. secure must be
// false when the site is served over plain HTTP, or browsers drop the cookie.
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

type ctxKey struct{}

// WithProfile stores the signed-in profile for the handlers behind the auth middleware.
func WithProfile(ctx context.Context, p *storage.Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func ProfileFrom(ctx context.Context) (*storage.Profile, bool) {
	p, ok := ctx.Value(ctxKey{}).(*storage.Profile)
	return p, ok && p != nil
}

// GetAuthenticatedUID returns the uid stored in the session cookie.
func (h *Handler) GetAuthenticatedUID(r *http.Request) (string, bool) {
	session, _ := h.Store.Get(r, SessionName)
	uid, ok := session.Values[sessionUID].(string)
	return uid, ok && uid != ""
}

// HandleGoogleLogin remembers a random state in the session and redirects to the provider.
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	session, _ := h.Store.Get(r, SessionName)
	state := uuid.NewString()
	session.Values[sessionState] = state
	if err := session.Save(r, w); err != nil {
		h.Log.Error("session save failed", "error", err)
		jsonError(w, "session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.Auth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback provisions the user on first sign-in and opens the session.
func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := h.Store.Get(r, SessionName)
	want, _ := session.Values[sessionState].(string)
	delete(session.Values, sessionState)
	if want == "" || r.URL.Query().Get("state") != want {
		jsonError(w, "invalid state", http.StatusUnauthorized)
		return
	}

	identity, err := h.Auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.Log.Warn("sign-in exchange failed", "error", err)
		jsonError(w, "sign-in failed", http.StatusBadRequest)
		return
	}

	profile, err := h.App.Directory.Provision(r.Context(), identity, models.DefaultRole)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	if profile.Disabled {
		jsonError(w, "account disabled", http.StatusForbidden)
		return
	}

	session.Values[sessionUID] = profile.UID
	session.Values[sessionEmail] = profile.Email
	session.Values[sessionName] = identity.Name
	session.Values[sessionPic] = identity.Picture
	if err := session.Save(r, w); err != nil {
		h.Log.Error("session save failed", "error", err)
		jsonError(w, "session error", http.StatusInternalServerError)
		return
	}
	h.Log.Info("signed in", "uid", profile.UID, "role", profile.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.Store.Get(r, SessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.Log.Warn("session clear failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAccountStatus answers whether an email can sign in, before the provider round trip.
func (h *Handler) HandleAccountStatus(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := h.Validate.Var(email, "required,email"); err != nil {
		jsonError(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	status, err := h.App.Directory.AccountStatus(r.Context(), email)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.AccountStatus{"status": status})
}

// HandleMe returns the signed-in user's entry.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFrom(r.Context())
	if !ok {
		jsonError(w, "not signed in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, p.User)
}
