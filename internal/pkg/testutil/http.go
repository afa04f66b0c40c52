package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// AsUser injects the authenticated user the way RequireAuth does.
func AsUser(id uuid.UUID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": id.String(),
			"email":   "ada@example.com",
		})
		c.Locals("token", "test-token")
		return c.Next()
	}
}

// JSONRequest builds a request with a JSON body.
func JSONRequest(method, target string, body interface{}) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// Do runs req against app and decodes the JSON envelope.
func Do(t testing.TB, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// ErrorMessage pulls error.message out of an error envelope.
func ErrorMessage(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	s, _ := e["message"].(string)
	return s
}
