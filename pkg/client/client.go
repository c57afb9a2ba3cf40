package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAddr is where the daemon serves its HTTP API by default.
const DefaultAddr = "127.0.0.1:80"

// Client is a struct for communicating with the wle daemon
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client. addr is host:port
// or a full http URL.
func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &Client{
		baseURL: strings.TrimSuffix(addr, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
					conn, err := dialer.DialContext(ctx, network, address)
					if err != nil {
						if errors.Is(err, syscall.ECONNREFUSED) {
							return nil, ErrDaemonNotRunning
						}
						logrus.Errorf("failed to connect to %s: %v", address, err)
						return nil, err
					}
					return conn, nil
				},
			},
		},
	}
}

// BaseURL returns the URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send is a method for sending a request to the wle daemon. A non-empty
// form is sent as an urlencoded body.
func (c *Client) Send(method string, path string, form url.Values) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"form":   form.Encode(),
		"url":    c.baseURL,
	}).Debug("sending request")

	var body io.Reader
	if len(form) > 0 {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	respBody := string(b)

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("got %d: %s", resp.StatusCode, respBody)
	}

	return respBody, nil
}

// Get is a method for sending a GET request to the wle daemon
func (c *Client) Get(path string) (string, error) {
	return c.Send(http.MethodGet, path, nil)
}

// Put is a method for sending a PUT request to the wle daemon
func (c *Client) Put(path string, form url.Values) (string, error) {
	return c.Send(http.MethodPut, path, form)
}
