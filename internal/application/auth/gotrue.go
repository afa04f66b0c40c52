package auth

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
)

// User is the account as Supabase Auth reports it.
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
}

// FullName reads the name stored at signup.
func (u User) FullName() string {
	if u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata["full_name"].(string)
	return s
}

// Session is a signed-in token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// APIError is a non-2xx answer from Supabase Auth.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase auth: status %d: %s", e.Status, e.Message)
}

// Provider is the slice of the Supabase Auth (GoTrue) REST API the service uses.
type Provider interface {
	SignUp(ctx context.Context, email, password, fullName, redirectTo string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Recover(ctx context.Context, email, redirectTo string) error
	Verify(ctx context.Context, kind, tokenHash string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// GoTrueClient talks to {SUPABASE_URL}/auth/v1 with the anon key.
type GoTrueClient struct {
	BaseURL string
	AnonKey string
	Client  *http.Client
}

func (c *GoTrueClient) SignUp(ctx context.Context, email, password, fullName, redirectTo string) (*User, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	// signup answers with the user, or with a session wrapping it when confirmations are off
	var out struct {
		User
		Nested *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/signup", redirectQuery(redirectTo), "", body, &out); err != nil {
		return nil, err
	}
	if out.Nested != nil {
		return out.Nested, nil
	}
	return &out.User, nil
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	q := url.Values{"grant_type": {"password"}}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{"email": email, "password": password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *GoTrueClient) Recover(ctx context.Context, email, redirectTo string) error {
	return c.do(ctx, http.MethodPost, "/recover", redirectQuery(redirectTo), "", map[string]string{"email": email}, nil)
}

func (c *GoTrueClient) Verify(ctx context.Context, kind, tokenHash string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/verify", nil, "", map[string]string{"type": kind, "token_hash": tokenHash}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *GoTrueClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func redirectQuery(redirectTo string) url.Values {
	if redirectTo == "" {
		return nil
	}
	return url.Values{"redirect_to": {redirectTo}}
}

func (c *GoTrueClient) do(ctx context.Context, method, path string, q url.Values, bearer string, in, out interface{}) error {
	if c.BaseURL == "" {
		return fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/auth/v1" + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.AnonKey)
	if bearer == "" {
		bearer = c.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase auth request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("supabase auth decode: %w", err)
	}
	return nil
}

// errorMessage pulls the human message out of the several error shapes GoTrue returns.
func errorMessage(raw []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil {
		for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
