package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authsvc "vectorium-backend/internal/application/auth"
	"vectorium-backend/internal/middleware"
	"vectorium-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "5d0c0f7e-7d8a-4c7e-9a57-1f3c2b1a0e11"

func fakeSupabase(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "S3cret!pass" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600,"user":{"id":"` + userID + `","email":"ada@example.com"}}`))
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + userID + `","email":"ada@example.com","user_metadata":{"full_name":"Ada Lovelace"}}`))
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
	})
	mux.HandleFunc("/auth/v1/recover", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupAuthApp(t *testing.T) (*fiber.App, *[]string) {
	srv := fakeSupabase(t)
	svc := &authsvc.Service{Provider: &authsvc.GoTrueClient{BaseURL: srv.URL, AnonKey: "anon"}}
	signedOut := &[]string{}
	h := &Handlers{Service: svc, OnSignOut: func(id string) { *signedOut = append(*signedOut, id) }}

	app := fiber.New()
	g := app.Group("/auth")
	g.Post("/signup", h.SignUp)
	g.Post("/signin", h.SignIn)
	g.Post("/forgot-password", h.ForgotPassword)
	g.Post("/verify", h.Verify)
	g.Delete("/signout", middleware.RequireAuth(svc), h.SignOut)
	g.Get("/me", middleware.RequireAuth(svc), h.Me)
	return app, signedOut
}

func TestSignIn(t *testing.T) {
	app, _ := setupAuthApp(t)

	code, body := testutil.Do(t, app, testutil.JSONRequest("POST", "/auth/signin", map[string]string{"email": "ada@example.com", "password": "S3cret!pass"}))
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "tok-1", body["data"].(map[string]interface{})["access_token"])

	code, body = testutil.Do(t, app, testutil.JSONRequest("POST", "/auth/signin", map[string]string{"email": "ada@example.com", "password": "nope"}))
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, "Invalid email or password", testutil.ErrorMessage(body))

	code, _ = testutil.Do(t, app, testutil.JSONRequest("POST", "/auth/signin", map[string]string{}))
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestSignUp_Conflict(t *testing.T) {
	app, _ := setupAuthApp(t)
	code, _ := testutil.Do(t, app, testutil.JSONRequest("POST", "/auth/signup", map[string]string{
		"email": "ada@example.com", "password": "S3cret!pass", "fullName": "Ada Lovelace",
	}))
	assert.Equal(t, fiber.StatusConflict, code)
}

func TestForgotPassword_DoesNotRevealUnknownEmail(t *testing.T) {
	app, _ := setupAuthApp(t)
	code, _ := testutil.Do(t, app, testutil.JSONRequest("POST", "/auth/forgot-password", map[string]string{"email": "ghost@example.com"}))
	assert.Equal(t, fiber.StatusOK, code)
}

func TestMeAndSignOut(t *testing.T) {
	app, signedOut := setupAuthApp(t)

	code, _ := testutil.Do(t, app, testutil.JSONRequest("GET", "/auth/me", nil))
	assert.Equal(t, fiber.StatusUnauthorized, code)

	req := testutil.JSONRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	code, body := testutil.Do(t, app, req)
	require.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, userID, data["user_id"])
	assert.Equal(t, "Ada Lovelace", data["full_name"])

	req = testutil.JSONRequest("DELETE", "/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	code, _ = testutil.Do(t, app, req)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{userID}, *signedOut)
}
