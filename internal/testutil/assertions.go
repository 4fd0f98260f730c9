package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies an {"error": ...} response with the expected status.
// An empty expectedMessage only checks that the error field is set.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body struct {
		Error string `json:"error"`
	}
	AssertJSONResponse(t, resp, &body)

	assert.NotEmpty(t, body.Error, "error field missing")
	if expectedMessage != "" {
		assert.Contains(t, body.Error, expectedMessage, "error message mismatch")
	}
}

// AssertItemRefs verifies a watchlist equals the expected items, in order
func AssertItemRefs(t *testing.T, expected, actual []domain.ItemRef) {
	t.Helper()
	if len(expected) == 0 {
		assert.Empty(t, actual)
		return
	}
	assert.Equal(t, expected, actual, "watchlist mismatch")
}

// AssertContainsItem verifies an item is present in a watchlist
func AssertContainsItem(t *testing.T, items []domain.ItemRef, provider domain.Provider, id string) {
	t.Helper()
	assert.Contains(t, items, domain.ItemRef{Provider: provider, ID: id}, "item %s:%s not in watchlist", provider, id)
}
