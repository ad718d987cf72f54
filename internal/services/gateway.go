// HTTP implementation of [Gateway]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/shared"
)

const defaultGatewayURL = "http://localhost:8080"

var _ Gateway = (*GatewayService)(nil)

// GatewayService talks to the API gateway over HTTP.
type GatewayService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewGatewayService creates a gateway client. Empty baseURL, nil client and nil logger fall back to defaults.
func NewGatewayService(baseURL string, client *http.Client, logger *log.Logger) *GatewayService {
	if baseURL == "" {
		baseURL = defaultGatewayURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &GatewayService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     shared.WithLogger(logger, "component", "gateway"),
	}
}

// NewHTTPClient returns an [http.Client] with the given timeout, zero meaning none.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// BaseURL returns the gateway base URL without a trailing slash.
func (g *GatewayService) BaseURL() string { return g.baseURL }

// APIResponse represents a raw gateway response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// do sends a request and reads the whole response. Non-2xx statuses are not errors here.
func (g *GatewayService) do(ctx context.Context, method, path string, creds *Credentials, payload any) (*APIResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if creds != nil {
		creds.apply(req.Header)
	}

	reqID := shared.GenerateID()
	start := time.Now()
	g.logger.Debug("gateway request", "id", reqID, "method", method, "path", path)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("gateway request failed", "id", reqID, "path", path, "err", err)
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	g.logger.Debug("gateway response", "id", reqID, "status", resp.StatusCode, "elapsed", time.Since(start))

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Exchange posts the authorization code to the gateway.
func (g *GatewayService) Exchange(ctx context.Context, code, redirectURI string) (*models.TokenResponse, error) {
	payload := struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirect_uri,omitempty"`
	}{code, redirectURI}

	resp, err := g.do(ctx, http.MethodPost, PathExchange, nil, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("exchange", resp, "Code exchange failed")
	}

	var tokens models.TokenResponse
	if err := json.Unmarshal(resp.Body, &tokens); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token response: %w", shared.ErrAPIRequest, err)
	}
	if tokens.AccessToken == "" || tokens.IDToken == "" {
		return nil, fmt.Errorf("%w: token response is missing tokens", shared.ErrAuthFailed)
	}
	return &tokens, nil
}

// Search runs a public catalog query.
func (g *GatewayService) Search(ctx context.Context, req models.SearchRequest) ([]models.BookSummary, error) {
	q := url.Values{}
	q.Set("term", string(req.Type))
	q.Set("search", req.Query)

	resp, err := g.do(ctx, http.MethodGet, PathSearch+"?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("search", resp, "Search Error: "+statusText(resp))
	}

	var books []models.BookSummary
	if err := json.Unmarshal(resp.Body, &books); err == nil {
		return books, nil
	}
	// Some gateway revisions wrap results in the list envelope.
	return decodeItems[models.BookSummary](resp.Body)
}

// Shelves lists the user's shelves.
func (g *GatewayService) Shelves(ctx context.Context, creds Credentials) ([]models.Shelf, error) {
	if !creds.Valid() {
		return nil, shared.ErrNotAuthenticated
	}

	resp, err := g.do(ctx, http.MethodGet, PathShelves, &creds, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("shelves", resp, "Library fetch failed: "+statusText(resp))
	}
	return decodeItems[models.Shelf](resp.Body)
}

// ShelfVolumes lists the volumes on a shelf.
func (g *GatewayService) ShelfVolumes(ctx context.Context, creds Credentials, shelfID string) ([]models.Volume, error) {
	if !creds.Valid() {
		return nil, shared.ErrNotAuthenticated
	}

	resp, err := g.do(ctx, http.MethodGet, shelfPath(pathShelfVolumes, shelfID), &creds, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("shelf volumes", resp, fmt.Sprintf("Shelf fetch failed: %d", resp.StatusCode))
	}
	return decodeItems[models.Volume](resp.Body)
}

// AddVolume adds a volume to a shelf.
func (g *GatewayService) AddVolume(ctx context.Context, creds Credentials, shelfID, volumeID string) error {
	return g.mutate(ctx, creds, pathShelfAdd, "add", "Add failed", shelfID, volumeID)
}

// RemoveVolume removes a volume from a shelf.
func (g *GatewayService) RemoveVolume(ctx context.Context, creds Credentials, shelfID, volumeID string) error {
	return g.mutate(ctx, creds, pathShelfRemove, "remove", "Remove failed", shelfID, volumeID)
}

func (g *GatewayService) mutate(ctx context.Context, creds Credentials, pathFmt, op, failPrefix, shelfID, volumeID string) error {
	if !creds.Valid() {
		return shared.ErrNotAuthenticated
	}

	payload := struct {
		VolumeID string `json:"volumeId"`
	}{volumeID}

	resp, err := g.do(ctx, http.MethodPost, shelfPath(pathFmt, shelfID), &creds, payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return statusError(op, resp, fmt.Sprintf("%s: %d", failPrefix, resp.StatusCode))
	}
	return nil
}

func shelfPath(format, shelfID string) string {
	return fmt.Sprintf(format, url.PathEscape(shelfID))
}

// decodeItems reads the {items: [...]} envelope. A missing or non-array items field yields an empty list.
func decodeItems[T any](body []byte) ([]T, error) {
	var envelope struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}

	items := []T{}
	trimmed := bytes.TrimSpace(envelope.Items)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return items, nil
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode items: %w", shared.ErrAPIRequest, err)
	}
	return items, nil
}
