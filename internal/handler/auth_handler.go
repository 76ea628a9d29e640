package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/middleware"
)

// CSRFCookie is readable by scripts so that front-ends can echo it back in
// the anti-forgery header.
const CSRFCookie = "csrftoken"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessions     *marketplace.SessionService
	secureCookie bool
}

// NewAuthHandler creates a new authentication handler. secureCookie marks
// cookies Secure and should be set whenever the API is served over TLS.
func NewAuthHandler(sessions *marketplace.SessionService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		secureCookie: secureCookie,
	}
}

// GoogleLoginRequest carries the identity provider's ID token.
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// Google exchanges an ID token for a session and sets the session and
// anti-forgery cookies.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Token)
	switch {
	case errors.Is(err, domain.ErrNotBITSMail):
		writeError(w, http.StatusBadRequest, "Only BITS mail accounts are allowed")
		return
	case errors.Is(err, marketplace.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid identity token")
		return
	case err != nil:
		writeServiceError(w, r, err)
		return
	}

	maxAge := int(h.sessions.TTL().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    session.CSRFToken,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, session.Identity)
}

// Campus returns the campus of the logged-in user.
func (h *AuthHandler) Campus(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"campus": string(session.Campus)})
}

// Logout deletes the session and expires both cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	if err := h.sessions.Logout(r.Context(), session.Token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		writeServiceError(w, r, err)
		return
	}

	for _, name := range []string{middleware.SessionCookie, CSRFCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == middleware.SessionCookie,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
