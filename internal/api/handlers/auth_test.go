package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dom/kaf-catalog/internal/config"
	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)

	testutil.NewUserBuilder().
		WithEmail("existing@test.local").
		Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful registration",
			request: map[string]string{
				"name":     "New User",
				"email":    "new@test.local",
				"password": "password123",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var raw map[string]json.RawMessage
				testutil.AssertJSONResponse(t, resp, &raw)
				require.Contains(t, raw, "token")
				require.Contains(t, raw, "user")

				var user map[string]interface{}
				require.NoError(t, json.Unmarshal(raw["user"], &user))
				assert.Equal(t, "new@test.local", user["email"])
				assert.Equal(t, "user", user["role"])
				assert.NotContains(t, user, "passwordHash")
				assert.NotContains(t, user, "password")
			},
		},
		{
			name: "duplicate email",
			request: map[string]string{
				"email":    "existing@test.local",
				"password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp *http.Response) {
				testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "already registered")
			},
		},
		{
			name:           "missing email",
			request:        map[string]string{"password": "password123"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing password",
			request:        map[string]string{"email": "nopass@test.local"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty request body",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.request)
			resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_RegisterMalformedJSON(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "")
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("login@test.local").
		WithPassword("correctpassword").
		Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful login",
			request: map[string]string{
				"email":    user.Email,
				"password": rawPassword,
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, user.ID, result.User.ID)
				assert.NotEmpty(t, result.Token)
			},
		},
		{
			name: "bootstrapped admin",
			request: map[string]string{
				"email":    "admin@kaf.local",
				"password": "admin123",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, domain.RoleAdmin, result.User.Role)
			},
		},
		{
			name: "wrong password",
			request: map[string]string{
				"email":    user.Email,
				"password": "wrongpassword",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp *http.Response) {
				testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid credentials")
			},
		},
		{
			name: "unknown email",
			request: map[string]string{
				"email":    "ghost@test.local",
				"password": "whatever",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp *http.Response) {
				testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid credentials")
			},
		},
		{
			name:           "missing fields",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.request)
			resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewBuffer(body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().WithName("Me Myself").BuildAndAuthenticate(t, ts)

	req := testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/auth/me"), nil, token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me domain.PublicUser
	testutil.AssertJSONResponse(t, resp, &me)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "Me Myself", me.Name)

	resp2, err := http.Get(ts.APIURL("/auth/me"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	testutil.AssertErrorResponse(t, resp2, http.StatusUnauthorized, "")
}

func TestHealth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(ts.BaseURL() + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestServerWithoutSigningSecret(t *testing.T) {
	ts := testutil.NewTestServerWithConfig(t, func(cfg *config.Config) {
		cfg.JWTSecret = ""
	})

	resp, err := http.Get(ts.APIURL("/movies/combined"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "public browsing still works")

	body, _ := json.Marshal(map[string]string{"email": "admin@kaf.local", "password": "admin123"})
	loginResp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer loginResp.Body.Close()
	testutil.AssertErrorResponse(t, loginResp, http.StatusInternalServerError, "")

	body, _ = json.Marshal(map[string]string{"email": "late@test.local", "password": "pw"})
	registerResp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer registerResp.Body.Close()
	testutil.AssertErrorResponse(t, registerResp, http.StatusInternalServerError, "")

	_, err = ts.Repos.User.GetByEmail(context.Background(), "late@test.local")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
