package config

import (
	"net"
	"net/http"
	"time"

	"campus-market/internal/observability"
)

// NewHTTPClient creates the pooled, instrumented client used for every API
// call. jar carries the session and anti-forgery cookies and may be nil.
func NewHTTPClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		// Configure connection pool
		MaxIdleConns:          25,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       5 * time.Minute,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Transport: observability.InstrumentTransport(transport),
		Jar:       jar,
		Timeout:   timeout,
	}
}
