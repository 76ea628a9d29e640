package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"campus-market/internal/domain"
	"campus-market/internal/observability"

	"github.com/google/uuid"
)

var ErrInvalidResponse = errors.New("invalid response from marketplace API")

// DefaultCSRFHeader is the header the API reads the anti-forgery token from.
const DefaultCSRFHeader = "X-CSRFToken"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("marketplace API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("marketplace API returned %d: %s", e.StatusCode, e.Message)
}

// CSRFRejected reports whether the server refused the anti-forgery token
// rather than the caller.
func (e *APIError) CSRFRejected() bool {
	return e.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(e.Message), "csrf")
}

// ItemsResponse is the body of GET /items.
type ItemsResponse struct {
	Status               string           `json:"status"`
	Items                []domain.Listing `json:"items"`
	TotalItems           int              `json:"total_items"`
	TotalItemsByCategory map[string]int   `json:"total_items_cat"`
}

// Client makes typed calls against the marketplace REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	csrfHeader string
}

// NewClient creates a new marketplace API client. The http.Client should
// carry the cookie jar holding the session and anti-forgery cookies.
func NewClient(baseURL string, httpClient *http.Client, csrfHeader string) *Client {
	if csrfHeader == "" {
		csrfHeader = DefaultCSRFHeader
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		csrfHeader: csrfHeader,
	}
}

// BaseURL returns the parsed API base, the URL anti-forgery cookies are
// scoped to.
func (c *Client) BaseURL() *url.URL {
	u, _ := url.Parse(c.baseURL + "/")
	return u
}

// ListItems fetches one page of the listing feed.
func (c *Client) ListItems(ctx context.Context, f domain.Filters) (*ItemsResponse, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Campus != "" {
		q.Set("campus", string(f.Campus))
	}
	q.Set("page", strconv.Itoa(f.Page))
	if f.Sort != "" {
		q.Set("sort_by", string(f.Sort))
	}

	var out ItemsResponse
	if err := c.do(ctx, http.MethodGet, "/items?"+q.Encode(), "", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetItem fetches a single listing and its similar items.
func (c *Client) GetItem(ctx context.Context, id string) (*domain.ItemDetail, error) {
	var out domain.ItemDetail
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), "", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyListings fetches every listing owned by the logged-in user.
func (c *Client) MyListings(ctx context.Context) ([]domain.Listing, error) {
	var out struct {
		Status string           `json:"status"`
		Items  []domain.Listing `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/mylistings", "", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// BatchMutate applies a batch method to ids in one request.
func (c *Client) BatchMutate(ctx context.Context, token string, method domain.Method, ids []string) error {
	if !method.IsBatch() {
		return fmt.Errorf("%w: %s is not a batch method", domain.ErrInvalidMethod, method)
	}
	body, err := json.Marshal(map[string]interface{}{
		"method": string(method),
		"ids":    ids,
	})
	if err != nil {
		return fmt.Errorf("failed to encode batch request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/mylistings/", token, bytes.NewReader(body), "application/json", nil)
}

// SubmitListing creates a listing (id == "") or updates listing id. It
// returns the id the server assigned or kept.
func (c *Client) SubmitListing(ctx context.Context, token, id string, form *domain.ListingForm) (string, error) {
	body, contentType, err := encodeListingForm(form)
	if err != nil {
		return "", err
	}

	path := "/items/"
	if id != "" {
		path += url.PathEscape(id)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, path, token, body, contentType, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// SendFeedback posts a feedback report.
func (c *Client) SendFeedback(ctx context.Context, token string, form *domain.FeedbackForm) error {
	body, contentType, err := encodeFeedbackForm(form)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/feedback", token, body, contentType, nil)
}

// ExchangeIdentity trades a third-party ID token for a server session. On
// success the server sets the session and anti-forgery cookies.
func (c *Client) ExchangeIdentity(ctx context.Context, idToken string) (*domain.Identity, error) {
	body, err := json.Marshal(map[string]string{"token": idToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity token: %w", err)
	}

	var out domain.Identity
	if err := c.do(ctx, http.MethodPost, "/auth/google/", "", bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	if out.Email == "" {
		return nil, ErrInvalidResponse
	}
	return &out, nil
}

// ResolveCampus asks the server which campus the session belongs to.
func (c *Client) ResolveCampus(ctx context.Context, token string) (domain.Campus, error) {
	var out struct {
		Campus string `json:"campus"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/campus/", token, nil, "", &out); err != nil {
		return "", err
	}
	campus, err := domain.ParseCampus(out.Campus)
	if err != nil {
		return "", fmt.Errorf("%w: campus %q", ErrInvalidResponse, out.Campus)
	}
	return campus, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout/", token, nil, "", nil)
}

// do sends one request. token, when set, goes in the anti-forgery header.
// A non-2xx response is returned as *APIError.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(c.csrfHeader, token)
	}
	requestID, ok := observability.RequestID(ctx)
	if !ok {
		requestID = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	switch {
	case json.Unmarshal(raw, &body) == nil && body.Error != "":
		apiErr.Message = body.Error
	case body.Detail != "":
		apiErr.Message = body.Detail
	default:
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
