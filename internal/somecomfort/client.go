package somecomfort

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.mytotalconnectcomfort.com/portal"

const defaultTimeout = 15 * time.Second

// Config defines runtime configuration for the portal client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the Total Connect Comfort portal. One client holds one
// authenticated session (cookie jar) shared by all of its devices.
type Client struct {
	baseURL  string
	username string
	password string

	httpClient *http.Client
	devices    map[int64]*Device
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		return nil, fmt.Errorf("somecomfort: username and password are required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("somecomfort: cookie jar: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		devices:    make(map[int64]*Device),
	}, nil
}

// Login authenticates against the portal and establishes the session
// cookies. A response without a session cookie means the site is down, not
// that the credentials are bad; the error message carries that signature.
func (c *Client) Login(ctx context.Context) error {
	const op = "login"

	form := url.Values{
		"UserName":   {c.username},
		"Password":   {c.password},
		"RememberMe": {"false"},
		"timeOffset": {"480"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("somecomfort: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Message: "invalid credentials"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Op: op}
	case resp.StatusCode >= 500:
		return &ConnectionError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return &UnexpectedResponseError{Op: op, Status: resp.StatusCode, Detail: "login page"}
	}

	if !c.hasSessionCookie() {
		return &AuthError{Message: siteDownSignature + " in login response"}
	}
	return nil
}

func (c *Client) hasSessionCookie() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if strings.HasPrefix(cookie.Name, ".ASPXAUTH") && cookie.Value != "" {
			return true
		}
	}
	return false
}

// Discover enumerates locations and their devices, then fetches each
// device's current data so the snapshot is populated before the first poll.
func (c *Client) Discover(ctx context.Context) error {
	const op = "discover"

	var locations []struct {
		LocationID int64 `json:"LocationID"`
		Devices    []struct {
			DeviceID int64  `json:"DeviceID"`
			Name     string `json:"Name"`
		} `json:"Devices"`
	}
	if err := c.getJSON(ctx, op, "/Location/GetLocationListData?page=1&filter=", &locations); err != nil {
		return err
	}

	for _, loc := range locations {
		for _, d := range loc.Devices {
			dev := &Device{client: c, id: d.DeviceID, name: d.Name}
			if err := dev.Refresh(ctx); err != nil {
				return err
			}
			c.devices[d.DeviceID] = dev
		}
	}
	return nil
}

// Devices returns the devices found by Discover.
func (c *Client) Devices() map[int64]*Device {
	out := make(map[int64]*Device, len(c.devices))
	for id, d := range c.devices {
		out[id] = d
	}
	return out
}

// getJSON issues a GET and decodes the JSON body, mapping failures onto the
// error taxonomy.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	body, err := c.request(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UnexpectedResponseError{Op: op, Status: http.StatusOK, Detail: "malformed json: " + err.Error()}
	}
	return nil
}

// postJSON issues a POST with a JSON payload and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, op, path string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("somecomfort: %s: marshal payload: %w", op, err)
	}
	body, err := c.request(ctx, op, http.MethodPost, path, buf)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UnexpectedResponseError{Op: op, Status: http.StatusOK, Detail: "malformed json: " + err.Error()}
	}
	return nil
}

func (c *Client) request(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = strings.NewReader(string(payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("somecomfort: %s: build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &UnauthorizedError{Op: op}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Op: op}
	case resp.StatusCode >= 500:
		return nil, &ConnectionError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &UnexpectedResponseError{Op: op, Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	return body, nil
}
