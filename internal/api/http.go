package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"packliste/internal/model"
)

// ErrUnauthorized is returned when the server rejects the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// HTTPClient talks to the packliste server. The server scopes every
// operation to the authenticated user, so the ownerID passed to FetchLists
// must belong to the signed-in account.
type HTTPClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the bearer token used for subsequent requests.
func (c *HTTPClient) SetAuthToken(token string) {
	c.authToken = token
}

func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// AuthResponse is the result of SignUp and SignIn.
type AuthResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// SignUp registers a new account and stores the returned token on the client.
func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.authToken = out.Token
	return &out, nil
}

// SignIn authenticates and stores the returned token on the client.
func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.authToken = out.Token
	return &out, nil
}

func (c *HTTPClient) FetchLists(ctx context.Context, ownerID string) ([]model.List, error) {
	var lists []model.List
	if err := c.call(ctx, http.MethodGet, "/api/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (c *HTTPClient) CreateList(ctx context.Context, fields ListFields) (*model.List, error) {
	var list model.List
	if err := c.call(ctx, http.MethodPost, "/api/lists", fields, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *HTTPClient) UpdateList(ctx context.Context, id string, patch ListPatch) (*model.List, error) {
	var list model.List
	if err := c.call(ctx, http.MethodPut, "/api/lists/"+url.PathEscape(id), patch, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *HTTPClient) DeleteList(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/lists/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) TouchList(ctx context.Context, id string) (time.Time, error) {
	var out struct {
		UpdatedAt time.Time `json:"updated_at"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/lists/"+url.PathEscape(id)+"/touch", nil, &out); err != nil {
		return time.Time{}, err
	}
	return out.UpdatedAt, nil
}

func listIDsQuery(listIDs []string) string {
	return "?list_ids=" + url.QueryEscape(strings.Join(listIDs, ","))
}

func (c *HTTPClient) FetchSections(ctx context.Context, listIDs []string) ([]model.Section, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}
	var sections []model.Section
	if err := c.call(ctx, http.MethodGet, "/api/sections"+listIDsQuery(listIDs), nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (c *HTTPClient) CreateSection(ctx context.Context, fields SectionFields) (*model.Section, error) {
	var section model.Section
	if err := c.call(ctx, http.MethodPost, "/api/sections", fields, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

func (c *HTTPClient) UpdateSection(ctx context.Context, id string, patch SectionPatch) (*model.Section, error) {
	var section model.Section
	if err := c.call(ctx, http.MethodPut, "/api/sections/"+url.PathEscape(id), patch, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

func (c *HTTPClient) DeleteSection(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/sections/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ReorderSections(ctx context.Context, updates []PositionUpdate) error {
	return c.call(ctx, http.MethodPut, "/api/sections/reorder", updates, nil)
}

func (c *HTTPClient) FetchItems(ctx context.Context, listIDs []string) ([]model.Item, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}
	var items []model.Item
	if err := c.call(ctx, http.MethodGet, "/api/items"+listIDsQuery(listIDs), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) CreateItem(ctx context.Context, fields ItemFields) (*model.Item, error) {
	var item model.Item
	if err := c.call(ctx, http.MethodPost, "/api/items", fields, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, id string, patch ItemPatch) (*model.Item, error) {
	var item model.Item
	if err := c.call(ctx, http.MethodPut, "/api/items/"+url.PathEscape(id), patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) DeleteItem(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ReorderItems(ctx context.Context, updates []PositionUpdate) error {
	return c.call(ctx, http.MethodPut, "/api/items/reorder", updates, nil)
}

func (c *HTTPClient) ResetChecked(ctx context.Context, listID string) error {
	return c.call(ctx, http.MethodPost, "/api/lists/"+url.PathEscape(listID)+"/reset", nil, nil)
}

func (c *HTTPClient) ReassignSection(ctx context.Context, itemIDs []string, sectionID *string) error {
	body := map[string]any{"item_ids": itemIDs, "section_id": sectionID}
	return c.call(ctx, http.MethodPost, "/api/items/reassign", body, nil)
}

var _ Client = (*HTTPClient)(nil)
