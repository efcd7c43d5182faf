package session

import (
	"net/http"
	"strings"
	"time"
)

// Jar owns the browser-facing credential channel: a single HTTP-only cookie
// holding the backend-issued bearer token. The gateway never decodes the
// token, it only stores and forwards it.
type Jar struct {
	name     string
	domain   string
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

// Config holds cookie configuration settings
type Config struct {
	Name     string
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
	MaxAge   time.Duration
}

// NewJar creates a cookie jar for the named session cookie
func NewJar(cfg Config) *Jar {
	return &Jar{
		name:     cfg.Name,
		domain:   cfg.Domain,
		secure:   cfg.Secure,
		sameSite: parseSameSite(cfg.SameSite),
		maxAge:   cfg.MaxAge,
	}
}

// Name returns the session cookie name
func (j *Jar) Name() string {
	return j.name
}

// Set stores a token in the session cookie, replacing any previous value
func (j *Jar) Set(w http.ResponseWriter, token string) {
	maxAge := int(j.maxAge.Seconds())
	cookie := &http.Cookie{
		Name:     j.name,
		Value:    token,
		Path:     "/",
		Domain:   j.domain,
		Expires:  time.Now().Add(j.maxAge),
		MaxAge:   maxAge,
		HttpOnly: true, // Critical: prevents JavaScript access (XSS protection)
		Secure:   j.secure,
		SameSite: j.sameSite,
	}
	http.SetCookie(w, cookie)
}

// Clear removes the session cookie
func (j *Jar) Clear(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     j.name,
		Value:    "",
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: j.sameSite,
	}
	http.SetCookie(w, cookie)
}

// FromRequest extracts the session token from the request. The cookie takes
// precedence; an Authorization: Bearer header is accepted as a fallback for
// non-browser clients. Returns the empty string when no credential is present.
func (j *Jar) FromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(j.name); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
