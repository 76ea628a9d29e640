package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Names the reference API uses for its cookies and anti-forgery header.
const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
	CSRFHeader    = "X-CSRFToken"
)

// HTTP Test Helpers

// AssertStatusCode fails if the response status code doesn't match expected
func AssertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSONError fails unless the response has the expected status and an
// "error" field containing expectedMsg
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMsg string) {
	t.Helper()
	AssertStatusCode(t, w, expectedStatus)

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode JSON error: %v. Body: %s", err, w.Body.String())
	}
	if !strings.Contains(body.Error, expectedMsg) {
		t.Errorf("expected error message %q in response, got: %q", expectedMsg, body.Error)
	}
}

// AssertCookie fails if the response doesn't have a cookie with the expected name
func AssertCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Errorf("expected cookie %q not found", name)
	return nil
}

// AssertCookieCleared fails unless the response expires the named cookie
func AssertCookieCleared(t *testing.T, w *httptest.ResponseRecorder, name string) {
	t.Helper()
	c := AssertCookie(t, w, name)
	if c != nil && c.MaxAge >= 0 {
		t.Errorf("cookie %q: expected MaxAge < 0, got %d", name, c.MaxAge)
	}
}

// Request Helpers

// NewJSONRequest creates a new HTTP request with JSON body
func NewJSONRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSession adds the session cookie and, when csrfToken is not empty, the
// anti-forgery header to req
func WithSession(req *http.Request, sessionToken, csrfToken string) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionToken})
	if csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: csrfToken})
		req.Header.Set(CSRFHeader, csrfToken)
	}
	return req
}

// NewMultipartRequest creates a request with fields as form values and
// files as "images" parts, keyed by file name
func NewMultipartRequest(t *testing.T, method, url string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %q: %v", k, err)
		}
	}
	for name, data := range files {
		part, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("failed to create file part %q: %v", name, err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write file part %q: %v", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// DecodeJSON decodes JSON response body into the given struct
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode JSON response: %v. Body: %s", err, w.Body.String())
	}
	return result
}
