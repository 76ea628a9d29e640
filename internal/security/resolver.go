package security

import (
	"net/http"
	"net/url"
)

// DefaultCSRFCookie is the cookie the API stores its anti-forgery token in.
const DefaultCSRFCookie = "csrftoken"

// CookieSource yields the cookies that would accompany a request to u.
// *cookiejar.Jar and any http.CookieJar satisfy it.
type CookieSource interface {
	Cookies(u *url.URL) []*http.Cookie
}

// TokenResolver enumerates the anti-forgery tokens currently held for the
// API. It keeps no state between calls: every Resolve reads the cookie
// source again, since the jar may change between two requests.
type TokenResolver struct {
	source     CookieSource
	target     *url.URL
	cookieName string
}

// NewTokenResolver creates a resolver for cookies sent to target.
func NewTokenResolver(source CookieSource, target *url.URL, cookieName string) *TokenResolver {
	if cookieName == "" {
		cookieName = DefaultCSRFCookie
	}
	return &TokenResolver{
		source:     source,
		target:     target,
		cookieName: cookieName,
	}
}

// Resolve returns every non-empty token value in the order the source
// yields them. The result is empty, never nil-with-meaning: callers must
// treat an empty result as "no tokens", not as "nothing to try".
func (r *TokenResolver) Resolve() []string {
	tokens := make([]string, 0, 2)
	for _, c := range r.source.Cookies(r.target) {
		if c.Name == r.cookieName && c.Value != "" {
			tokens = append(tokens, c.Value)
		}
	}
	return tokens
}

// HeaderSource adapts a raw Cookie header ("a=1; csrftoken=x") to a
// CookieSource. The header is re-parsed on every call.
type HeaderSource struct {
	Header func() string
}

// Cookies ignores u: a raw header is already scoped to one request.
func (h HeaderSource) Cookies(_ *url.URL) []*http.Cookie {
	if h.Header == nil {
		return nil
	}
	cookies, err := http.ParseCookie(h.Header())
	if err != nil {
		return nil
	}
	return cookies
}
