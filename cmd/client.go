package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smazurov/lcrnode/internal/program"
)

// nodeClient talks to a running lcrnode API.
type nodeClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

func newNodeClient(baseURL, username, password string, timeout time.Duration) *nodeClient {
	return &nodeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// apiError is the RFC 9457 problem body huma returns.
type apiError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Detail)
	for _, d := range e.Errors {
		msg += ": " + d.Message
	}
	return msg
}

func (c *nodeClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode, Detail: resp.Status}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ApplyProgram sends p to the node and returns the outcome.
func (c *nodeClient) ApplyProgram(ctx context.Context, p *program.Program) (program.Result, error) {
	var res program.Result
	err := c.do(ctx, http.MethodPost, "/api/program", p, &res)
	return res, err
}

// ReloadProgram asks the node to re-apply its configured program file.
func (c *nodeClient) ReloadProgram(ctx context.Context) (program.Result, error) {
	var res program.Result
	err := c.do(ctx, http.MethodPost, "/api/program/reload", nil, &res)
	return res, err
}
