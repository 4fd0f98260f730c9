package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ItemRef struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

type LocalTitle struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Year   int      `json:"year"`
	Genres []string `json:"genres"`
}

type UploadResponse struct {
	OK    bool       `json:"ok"`
	Movie LocalTitle `json:"movie"`
}

type CombinedCatalog struct {
	Local  []json.RawMessage `json:"local"`
	Remote []json.RawMessage `json:"remote"`
}

// RegisterUser creates a new account with a unique email
func (c *APIClient) RegisterUser(baseName string) (*User, string, error) {
	email := fmt.Sprintf("%s_%d@sim.local", baseName, time.Now().UnixNano()%1000000)

	body := map[string]string{
		"name":     baseName,
		"email":    email,
		"password": "testpassword123",
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/register", body, "", &result); err != nil {
		return nil, "", fmt.Errorf("register: %w", err)
	}
	return &result.User, result.Token, nil
}

// Login authenticates an existing account
func (c *APIClient) Login(email, password string) (*User, string, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/login", body, "", &result); err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	return &result.User, result.Token, nil
}

// UploadTitle adds a local catalog entry (admin only)
func (c *APIClient) UploadTitle(token, title string, year int, genres string) (*LocalTitle, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":    title,
		"year":     fmt.Sprint(year),
		"genres":   genres,
		"overview": "Uploaded by simulator",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/admin/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResponse
	if err := c.send(req, &result); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return &result.Movie, nil
}

// Combined fetches the merged browse view
func (c *APIClient) Combined(page int) (*CombinedCatalog, error) {
	var result CombinedCatalog
	if err := c.do(http.MethodGet, fmt.Sprintf("/movies/combined?page=%d", page), nil, "", &result); err != nil {
		return nil, fmt.Errorf("combined: %w", err)
	}
	return &result, nil
}

// Watchlist returns the caller's watchlist
func (c *APIClient) Watchlist(token string) ([]ItemRef, error) {
	var items []ItemRef
	if err := c.do(http.MethodGet, "/watchlist", nil, token, &items); err != nil {
		return nil, fmt.Errorf("get watchlist: %w", err)
	}
	return items, nil
}

// AddToWatchlist adds an item to the caller's watchlist
func (c *APIClient) AddToWatchlist(token string, item ItemRef) ([]ItemRef, error) {
	var items []ItemRef
	if err := c.do(http.MethodPost, "/watchlist", map[string]ItemRef{"item": item}, token, &items); err != nil {
		return nil, fmt.Errorf("add to watchlist: %w", err)
	}
	return items, nil
}

// RemoveFromWatchlist removes an item from the caller's watchlist
func (c *APIClient) RemoveFromWatchlist(token string, item ItemRef) ([]ItemRef, error) {
	path := "/watchlist/" + url.PathEscape(item.Provider) + "/" + url.PathEscape(item.ID)
	var items []ItemRef
	if err := c.do(http.MethodDelete, path, nil, token, &items); err != nil {
		return nil, fmt.Errorf("remove from watchlist: %w", err)
	}
	return items, nil
}

// HTTP helpers

func (c *APIClient) do(method, path string, body interface{}, token string, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, out)
}

func (c *APIClient) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
