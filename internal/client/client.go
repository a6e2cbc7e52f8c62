package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// DefaultTimeout bounds every request. The backend gives no guidance, so we
// pick one rather than wait forever on a hung connection.
const DefaultTimeout = 15 * time.Second

const requestIDHeader = "X-Request-ID"

type Client struct {
	HTTP   *resty.Client
	Config ClientConfig
}

type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Insecure  bool // skip TLS verification (self-signed lab deployments)
}

func New(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cctv-cli"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetTimeout(cfg.Timeout)
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", cfg.UserAgent)
	r.SetJSONMarshaler(json.Marshal)
	r.SetJSONUnmarshaler(json.Unmarshal)

	if cfg.Insecure {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	// Correlate client requests with backend logs.
	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(requestIDHeader) == "" {
			req.SetHeader(requestIDHeader, uuid.NewString())
		}
		return nil
	})

	return &Client{
		HTTP:   r,
		Config: cfg,
	}
}

// Login exchanges credentials for a bearer token.
// The backend expects an OAuth2 password form, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", &ValidationError{Field: "credentials", Reason: "username and password are required"}
	}

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		SetResult(&models.LoginResponse{}).
		SetError(&models.APIError{}).
		Post("/login")

	if err != nil {
		return "", transportError("login", resp, err)
	}

	if resp.IsError() {
		// A 401 here means bad credentials, not a stale session.
		return "", newServerError("login", resp)
	}

	loginResult, ok := resp.Result().(*models.LoginResponse)
	if !ok {
		return "", errors.New("failed to parse login response")
	}

	if loginResult.AccessToken == "" {
		return "", errors.New("login successful but no access token returned")
	}

	return loginResult.AccessToken, nil
}

// Signup creates an account and returns the server's message.
func (c *Client) Signup(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", &ValidationError{Field: "credentials", Reason: "username and password are required"}
	}

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.SignupPayload{Username: username, Password: password}).
		SetResult(&models.SignupResponse{}).
		SetError(&models.APIError{}).
		Post("/signup")

	if err != nil {
		return "", transportError("signup", resp, err)
	}

	if resp.IsError() {
		return "", newServerError("signup", resp)
	}

	msg := "User created successfully"
	if res, ok := resp.Result().(*models.SignupResponse); ok && res.Message != "" {
		msg = res.Message
	}
	return msg, nil
}

// authorized builds a request carrying the bearer token.
func (c *Client) authorized(ctx context.Context, token string) *resty.Request {
	return c.HTTP.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&models.APIError{})
}

// checkAuthorized maps a finished protected call onto the error taxonomy.
func checkAuthorized(op string, resp *resty.Response, err error) error {
	if err != nil {
		return transportError(op, resp, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if resp.IsError() {
		return newServerError(op, resp)
	}
	return nil
}
