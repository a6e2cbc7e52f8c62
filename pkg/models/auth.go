package models

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// LoginResponse is returned by POST /login (form encoded request).
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SignupPayload is the JSON body of POST /signup
type SignupPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// APIError is the backend error body. Detail is usually a string, but
// request validation failures carry a list of objects instead.
type APIError struct {
	Detail json.RawMessage `json:"detail"`
}

// Message returns Detail as display text.
func (e *APIError) Message() string {
	if e == nil {
		return ""
	}
	raw := bytes.TrimSpace(e.Detail)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(raw)
}
