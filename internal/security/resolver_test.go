package security

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJar(t *testing.T) *cookiejar.Jar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func TestTokenResolver_Resolve(t *testing.T) {
	target, _ := url.Parse("http://market.test/api/")

	t.Run("empty_jar", func(t *testing.T) {
		r := NewTokenResolver(newJar(t), target, "")
		tokens := r.Resolve()
		assert.NotNil(t, tokens)
		assert.Empty(t, tokens)
	})

	t.Run("ignores_other_cookies", func(t *testing.T) {
		jar := newJar(t)
		jar.SetCookies(target, []*http.Cookie{
			{Name: "sessionid", Value: "s1", Path: "/"},
			{Name: "csrftoken", Value: "t1", Path: "/"},
		})

		r := NewTokenResolver(jar, target, "csrftoken")
		assert.Equal(t, []string{"t1"}, r.Resolve())
	})

	t.Run("longer_path_first", func(t *testing.T) {
		jar := newJar(t)
		jar.SetCookies(target, []*http.Cookie{{Name: "csrftoken", Value: "root", Path: "/"}})
		jar.SetCookies(target, []*http.Cookie{{Name: "csrftoken", Value: "api", Path: "/api"}})

		r := NewTokenResolver(jar, target, "csrftoken")
		assert.Equal(t, []string{"api", "root"}, r.Resolve())
	})

	t.Run("skips_empty_values", func(t *testing.T) {
		jar := newJar(t)
		jar.SetCookies(target, []*http.Cookie{{Name: "csrftoken", Value: "", Path: "/"}})

		r := NewTokenResolver(jar, target, "csrftoken")
		assert.Empty(t, r.Resolve())
	})

	t.Run("custom_cookie_name", func(t *testing.T) {
		jar := newJar(t)
		jar.SetCookies(target, []*http.Cookie{
			{Name: "csrftoken", Value: "t1", Path: "/"},
			{Name: "XSRF-TOKEN", Value: "x1", Path: "/"},
		})

		r := NewTokenResolver(jar, target, "XSRF-TOKEN")
		assert.Equal(t, []string{"x1"}, r.Resolve())
	})
}

func TestTokenResolver_ReadsFreshOnEveryCall(t *testing.T) {
	target, _ := url.Parse("http://market.test/api/")
	jar := newJar(t)
	r := NewTokenResolver(jar, target, "csrftoken")

	jar.SetCookies(target, []*http.Cookie{{Name: "csrftoken", Value: "t1", Path: "/"}})
	first := r.Resolve()
	second := r.Resolve()
	assert.Equal(t, first, second)

	jar.SetCookies(target, []*http.Cookie{{Name: "csrftoken", Value: "t2", Path: "/"}})
	assert.Equal(t, []string{"t2"}, r.Resolve())

	jar.SetCookies(target, []*http.Cookie{{Name: "csrftoken", Value: "t2", Path: "/", MaxAge: -1}})
	assert.Empty(t, r.Resolve())
}

func TestHeaderSource(t *testing.T) {
	header := "sessionid=s1; csrftoken=A; theme=dark; csrftoken=B; csrftoken=C"
	r := NewTokenResolver(HeaderSource{Header: func() string { return header }}, nil, "csrftoken")

	assert.Equal(t, []string{"A", "B", "C"}, r.Resolve())
	assert.Equal(t, r.Resolve(), r.Resolve())

	header = "sessionid=s1"
	assert.Empty(t, r.Resolve())
}

func TestHeaderSource_NilFunc(t *testing.T) {
	r := NewTokenResolver(HeaderSource{}, nil, "")
	assert.Empty(t, r.Resolve())
}
