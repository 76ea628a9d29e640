package file

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"campus-market/internal/observability"

	cookiejar "github.com/juju/persistent-cookiejar"
	"golang.org/x/net/publicsuffix"
)

// CookieJar is an http.CookieJar that survives restarts. Every change the
// server makes is saved straight away so a crash between commands never
// replays a rotated anti-forgery token.
type CookieJar struct {
	*cookiejar.Jar
	path string
}

// NewCookieJar loads the jar stored at path. A missing file yields an empty
// jar; an unreadable one is discarded.
func NewCookieJar(path string) (*CookieJar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cookie dir: %w", err)
	}

	jar, err := openJar(path)
	if err != nil {
		observability.Warn("Discarding stored cookies", "path", path, "error", err)
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove cookie file: %w", rmErr)
		}
		if jar, err = openJar(path); err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
	}
	return &CookieJar{Jar: jar, path: path}, nil
}

func openJar(path string) (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{
		Filename:         path,
		PublicSuffixList: publicsuffix.List,
	})
}

// SetCookies implements http.CookieJar.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.Jar.SetCookies(u, cookies)
	if err := j.Jar.Save(); err != nil {
		observability.Error("Failed to persist cookies", "error", err)
	}
}

// Clear drops every cookie, in memory and on disk. The file goes first so
// the save that follows has nothing to merge back in.
func (j *CookieJar) Clear() error {
	j.Jar.RemoveAll()
	if err := os.Remove(j.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	if err := j.Jar.Save(); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}
