// Package authclient calls the user-account endpoints of the greeting
// service and keeps the local session store in sync with the outcome.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"frostgreet/pkg/domain"
	"frostgreet/pkg/session"
)

// ErrNotAuthenticated is returned when an action needs a token and the
// session store has none.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is an HTTP-level error response from the auth API. Fields carries
// per-field messages when the server rejected individual inputs.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	return e.Message
}

// TransportError wraps a request that never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "auth service unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is a success status whose body is not JSON or is
// missing an expected field. Distinct from APIError: the server did not
// reject the request, it answered garbage.
type MalformedResponseError struct {
	Field string
}

func (e *MalformedResponseError) Error() string {
	if e.Field == "" {
		return "auth response is not valid JSON"
	}
	return "auth response missing field " + e.Field
}

// Client calls the auth API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   session.Store
}

// NewClient constructs an auth client bound to a session store.
func NewClient(baseURL string, sessions session.Store) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sessions:   sessions,
	}
}

type authResponse struct {
	Token string              `json:"token"`
	User  *domain.UserProfile `json:"user"`
}

// Login exchanges credentials for a token and persists the session on
// success.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users/login/", "", payload, &resp); err != nil {
		return domain.Session{}, err
	}
	if resp.Token == "" {
		return domain.Session{}, &MalformedResponseError{Field: "token"}
	}
	if resp.User == nil {
		return domain.Session{}, &MalformedResponseError{Field: "user"}
	}
	if err := c.sessions.SetSession(resp.Token, *resp.User); err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: resp.Token, User: resp.User}, nil
}

// Register validates the input locally, creates the account, and persists
// the returned session. Validation failures never reach the network.
func (c *Client) Register(ctx context.Context, input RegisterInput) (domain.Session, error) {
	if err := input.Validate(); err != nil {
		return domain.Session{}, err
	}
	payload := map[string]string{
		"username": input.Username,
		"email":    input.Email,
		"password": input.Password,
	}
	if input.FirstName != "" {
		payload["first_name"] = input.FirstName
	}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users/register/", "", payload, &resp); err != nil {
		return domain.Session{}, err
	}
	if resp.Token == "" {
		return domain.Session{}, &MalformedResponseError{Field: "token"}
	}
	if resp.User == nil {
		return domain.Session{}, &MalformedResponseError{Field: "user"}
	}
	if err := c.sessions.SetSession(resp.Token, *resp.User); err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: resp.Token, User: resp.User}, nil
}

// Logout revokes the token remotely, best effort, and always clears the
// local session. The remote error, if any, is returned after the clear.
func (c *Client) Logout(ctx context.Context) error {
	sess := c.sessions.Session()
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	remoteErr := c.doJSON(ctx, http.MethodPost, "/users/logout/", sess.Token, nil, nil)
	if err := c.sessions.Clear(); err != nil {
		return err
	}
	return remoteErr
}

// Me fetches the profile behind the stored token. A 401 means the token is
// dead; the local session is cleared so the caller falls back to logged-out.
func (c *Client) Me(ctx context.Context) (domain.UserProfile, error) {
	sess := c.sessions.Session()
	if !sess.Authenticated() {
		return domain.UserProfile{}, ErrNotAuthenticated
	}
	var user domain.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/users/me/", sess.Token, nil, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			_ = c.sessions.Clear()
			return domain.UserProfile{}, ErrNotAuthenticated
		}
		return domain.UserProfile{}, err
	}
	return user, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{}
	}
	return nil
}

// decodeAPIError understands the two error shapes the auth API produces: a
// flat {"error": "..."} message, and per-field maps like
// {"email": ["already exists"]} from rejected registrations.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return apiErr
	}
	if msg, ok := raw["error"]; ok {
		var s string
		if json.Unmarshal(msg, &s) == nil && s != "" {
			apiErr.Message = s
		}
		return apiErr
	}
	fields := make(map[string][]string)
	for key, val := range raw {
		var list []string
		if json.Unmarshal(val, &list) == nil && len(list) > 0 {
			fields[key] = list
			continue
		}
		var single string
		if json.Unmarshal(val, &single) == nil && single != "" {
			fields[key] = []string{single}
		}
	}
	if len(fields) > 0 {
		apiErr.Fields = fields
		for _, msgs := range fields {
			apiErr.Message = msgs[0]
			break
		}
	}
	return apiErr
}
