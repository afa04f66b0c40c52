package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	authsvc "vectorium-backend/internal/application/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5d0c0f7e-7d8a-4c7e-9a57-1f3c2b1a0e11"

type fakeAuth struct{ err error }

func (f fakeAuth) Authenticate(_ context.Context, token string) (*authsvc.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token != "good" {
		return nil, authsvc.ErrNotAuthenticated
	}
	return &authsvc.User{ID: testUserID, Email: "ada@example.com"}, nil
}

func authApp(a Authenticator) *fiber.App {
	app := fiber.New()
	app.Get("/me", RequireAuth(a), func(c *fiber.Ctx) error {
		id, ok := UserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(id.String() + " " + BearerToken(c))
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	app := authApp(fakeAuth{})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "bearer good")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, testUserID+" good", string(body))
}

func TestRequireAuth_ProviderDown(t *testing.T) {
	app := authApp(fakeAuth{err: authsvc.ErrUnavailable})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".vectorium.earth", DevPassword: "letmein"}))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })

	cases := []struct {
		origin, devPassword string
		want                int
	}{
		{"", "", fiber.StatusOK},
		{"https://app.vectorium.earth", "", fiber.StatusOK},
		{"http://localhost:3000", "", fiber.StatusOK},
		{"https://evil.example", "", fiber.StatusForbidden},
		{"https://evil.example", "letmein", fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/x", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if tc.devPassword != "" {
			req.Header.Set("dev-password", tc.devPassword)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.origin)
		if tc.want == fiber.StatusOK && tc.origin != "" {
			assert.Equal(t, tc.origin, resp.Header.Get("Access-Control-Allow-Origin"))
		}
	}

	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "https://app.vectorium.earth")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestErrorHandler_LogsServerErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(rdb)})
	app.Use(HealthMarker(rdb))
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("kaput") })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal Server Error", body["error"].(map[string]interface{})["message"])

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	entries, err := mr.List(KeyErrorLog)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "kaput")

	total, _ := mr.Get(KeyReqTotal)
	failed, _ := mr.Get(KeyReqErrors)
	assert.Equal(t, "2", total)
	assert.Equal(t, "1", failed)
}

func TestTracing_KeepsCallerID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Trace-Id", testUserID)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, testUserID, resp.Header.Get("X-Trace-Id"))

	resp, err = app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
	assert.NotEqual(t, testUserID, resp.Header.Get("X-Trace-Id"))
}

// requestCounts reads vectorium_http_requests_total for route, keyed by method.
func requestCounts(t *testing.T, route string) map[string]float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "vectorium_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == route {
				out[labels["method"]] += m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func TestMetrics_MethodLabelsSurviveBufferReuse(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.All("/metrics-methods", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 5; i++ {
		for _, m := range []string{"POST", "GET", "DELETE"} {
			resp, err := app.Test(httptest.NewRequest(m, "/metrics-methods", nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
		}
	}

	assert.Equal(t, map[string]float64{"POST": 5, "GET": 5, "DELETE": 5}, requestCounts(t, "/metrics-methods"))
}
