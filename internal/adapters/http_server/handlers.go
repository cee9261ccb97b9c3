package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tourguide/internal/adapters/observability"
	"tourguide/internal/app"
	"tourguide/internal/domain"
	"tourguide/internal/i18n"
)

type Handlers struct {
	Cat    *app.CatalogService
	Auth   *app.AuthService
	Trans  *i18n.Translator
	Tokens *TokenIssuer
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/auth/register", h.register)
	s.mux.Post("/v1/auth/login", h.login)
	s.mux.Post("/v1/auth/logout", h.logout)
	s.mux.Get("/v1/auth/google", h.beginGoogle)
	s.mux.Get("/v1/auth/google/callback", h.googleCallback)
	s.mux.Get("/v1/session", h.session)

	s.mux.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Auth, h.Tokens))
		r.Get("/v1/places", h.listPlaces)
		r.Get("/v1/filters", h.filters)
		r.Get("/v1/itineraries", h.listItineraries)
		r.Get("/v1/itineraries/{id}", h.getItinerary)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- auth ----

type credentialsIn struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm,omitempty"`
}

type loginOut struct {
	Token string          `json:"token"`
	User  domain.Identity `json:"user"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var in credentialsIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected JSON credentials")
		return
	}
	if err := h.Auth.Register(r.Context(), in.Username, in.Password, in.Confirm); err != nil {
		var rej *domain.RegistrationError
		if errors.As(err, &rej) {
			observability.ObserveAuth("register", string(rej.Rule))
			writeProblem(w, http.StatusUnprocessableEntity, "Registration rejected", string(rej.Rule))
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Registration failed", "")
		return
	}
	observability.ObserveAuth("register", "ok")
	// Registered but not logged in; the client logs in next.
	writeJSON(w, http.StatusCreated, map[string]string{"username": in.Username})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var in credentialsIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected JSON credentials")
		return
	}
	sid := h.Auth.NewSession()
	if err := h.Auth.Login(r.Context(), sid, in.Username, in.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			observability.ObserveAuth("local", "rejected")
			writeProblem(w, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Login failed", "")
		return
	}
	observability.ObserveAuth("local", "ok")
	h.issueSession(w, r, sid)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if raw := bearerToken(r); raw != "" {
		if sid, err := h.Tokens.Parse(raw); err == nil {
			h.Auth.Logout(sid)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.Auth.Logout(c.Value)
	}
	clearCookie(w, tokenCookie)
	clearCookie(w, sessionCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) beginGoogle(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(r)
	if sid == "" {
		sid = h.Auth.NewSession()
	}
	authURL, err := h.Auth.BeginExternalLogin(sid)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Login failed", "")
		return
	}
	// Correlation cookie: the provider redirect carries no token, only this.
	http.SetCookie(w, &http.Cookie{
		Name: sessionCookie, Value: sid, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *Handlers) googleCallback(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(r)
	if sid == "" {
		writeProblem(w, http.StatusForbidden, "Login rejected", "no login in progress")
		return
	}
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	ident, err := h.Auth.CompleteExternalLogin(r.Context(), sid, code, state)
	if err != nil {
		var ext *domain.ExternalAuthError
		switch {
		case errors.Is(err, domain.ErrStateMismatch):
			observability.ObserveAuth("google", "state_mismatch")
			writeProblem(w, http.StatusForbidden, "Login rejected", "authorization state mismatch")
		case errors.As(err, &ext):
			observability.ObserveAuth("google", "exchange_failed")
			log.Warn().Err(ext.Cause).Msg("external login failed")
			writeProblem(w, http.StatusUnauthorized, "Login failed", "external login failed")
		default:
			writeProblem(w, http.StatusInternalServerError, "Login failed", "")
		}
		return
	}
	observability.ObserveAuth("google", "ok")
	log.Info().Str("user", ident.Username).Msg("external login ok")
	h.issueSession(w, r, sid)
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) {
	type out struct {
		Authenticated bool             `json:"authenticated"`
		State         string           `json:"state"`
		User          *domain.Identity `json:"user,omitempty"`
	}
	resp := out{State: domain.StateUnauthenticated.String()}
	if raw := bearerToken(r); raw != "" {
		if sid, err := h.Tokens.Parse(raw); err == nil {
			state, ident := h.Auth.Session(sid)
			resp.State = state.String()
			resp.Authenticated = state == domain.StateAuthenticated
			resp.User = ident
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) issueSession(w http.ResponseWriter, r *http.Request, sid string) {
	_, ident := h.Auth.Session(sid)
	username := ""
	if ident != nil {
		username = ident.Username
	}
	token, err := h.Tokens.Issue(sid, username)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Login failed", "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name: tokenCookie, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
	out := loginOut{Token: token}
	if ident != nil {
		out.User = *ident
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// ---- catalog ----

func (h *Handlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	c := domain.FilterCriteria{
		District: r.URL.Query().Get("district"),
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}
	items := h.Cat.FilterPlaces(r.Context(), c)
	if ident, ok := identityFrom(r.Context()); ok {
		log.Debug().Str("user", ident.Username).Str("district", c.District).Str("category", c.Category).Int("count", len(items)).Msg("places filtered")
	}
	writeCachedJSON(w, r, map[string]any{"items": items, "count": len(items)})
}

func (h *Handlers) filters(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "English"
	}
	labels := map[string]string{}
	for _, key := range []string{"District", "Category", "Search (name/tips)", "Map View", "Places", "Itineraries"} {
		labels[key] = h.Trans.T(lang, key)
	}
	writeCachedJSON(w, r, map[string]any{
		"districts":  h.Cat.Districts(),
		"categories": h.Cat.Categories(),
		"labels":     labels,
	})
}

func (h *Handlers) listItineraries(w http.ResponseWriter, r *http.Request) {
	writeCachedJSON(w, r, map[string]any{"items": h.Cat.Itineraries()})
}

func (h *Handlers) getItinerary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	it, err := h.Cat.Itinerary(id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "itinerary not found")
		return
	}
	writeCachedJSON(w, r, map[string]any{
		"itinerary": it,
		"stops":     h.Cat.ResolveStops(it),
	})
}
