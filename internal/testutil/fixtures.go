package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	email    string
	password string
	role     domain.Role
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     "testuser_" + suffix,
		email:    fmt.Sprintf("user_%s@test.local", suffix),
		password: "testpassword123",
		role:     domain.RoleUser,
	}
}

// WithName sets the display name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithRole sets the role
func (b *UserBuilder) WithRole(role domain.Role) *UserBuilder {
	b.role = role
	return b
}

// Build stores the user through the repository and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, repo repository.UserRepository) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        b.email,
		Name:         b.name,
		PasswordHash: string(hashedPassword),
		Role:         b.role,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

// BuildAndAuthenticate registers the user via the API and returns the user and token.
// Registration always yields the user role; use Build plus Login for admins.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.PublicUser, string) {
	t.Helper()

	reqBody := map[string]string{
		"name":     b.name,
		"email":    b.email,
		"password": b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return &authResp.User, authResp.Token
}

// Login authenticates via the API and returns the token
func Login(t *testing.T, ts *TestServer, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return authResp.Token
}

// AdminToken logs in as the bootstrapped admin
func AdminToken(t *testing.T, ts *TestServer) string {
	t.Helper()
	return Login(t, ts, ts.Config.Admin.Email, ts.Config.Admin.Password)
}

// LocalTitleBuilder creates local catalog entries directly in the store
type LocalTitleBuilder struct {
	title     string
	year      int
	genres    []string
	createdAt time.Time
}

// NewLocalTitleBuilder creates a new LocalTitleBuilder with default values
func NewLocalTitleBuilder() *LocalTitleBuilder {
	return &LocalTitleBuilder{
		title:     "Test Title " + uuid.New().String()[:8],
		year:      2001,
		genres:    []string{"Drama"},
		createdAt: time.Now().UTC(),
	}
}

// WithTitle sets the title
func (b *LocalTitleBuilder) WithTitle(title string) *LocalTitleBuilder {
	b.title = title
	return b
}

// WithCreatedAt sets the creation time
func (b *LocalTitleBuilder) WithCreatedAt(at time.Time) *LocalTitleBuilder {
	b.createdAt = at
	return b
}

// Build stores the title through the repository
func (b *LocalTitleBuilder) Build(t *testing.T, repo repository.LocalTitleRepository) *domain.LocalTitle {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("failed to generate id: %v", err)
	}

	title := &domain.LocalTitle{
		ID:        id.String(),
		Title:     b.title,
		Year:      b.year,
		Genres:    b.genres,
		CreatedAt: b.createdAt,
	}
	if err := repo.Create(context.Background(), title); err != nil {
		t.Fatalf("failed to create local title: %v", err)
	}
	return title
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// CreateUploadRequest builds a multipart upload request. poster may be nil.
func CreateUploadRequest(t *testing.T, url string, fields map[string]string, poster []byte, token string) *http.Request {
	t.Helper()
	return CreateUploadRequestNamed(t, url, fields, "poster.png", poster, token)
}

// CreateUploadRequestNamed is CreateUploadRequest with a chosen poster filename.
func CreateUploadRequestNamed(t *testing.T, url string, fields map[string]string, posterName string, poster []byte, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	if poster != nil {
		fw, err := mw.CreateFormFile("poster", posterName)
		if err != nil {
			t.Fatalf("failed to create poster part: %v", err)
		}
		if _, err := fw.Write(poster); err != nil {
			t.Fatalf("failed to write poster: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
