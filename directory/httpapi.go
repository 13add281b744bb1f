package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// APIClient talks to the user-directory HTTP API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewAPIClient reads the bearer token from tokenFile and returns a client
// for baseURL.
func NewAPIClient(baseURL, tokenFile string, timeout time.Duration, logger *slog.Logger) (*APIClient, error) {
	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read directory token %s: %w", tokenFile, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil, fmt.Errorf("directory token file %s is empty", tokenFile)
	}

	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "directory-api"),
	}, nil
}

func (c *APIClient) GroupMembers(ctx context.Context, group string) ([]Member, error) {
	var members []Member
	if err := c.get(ctx, "/groups/"+url.PathEscape(group)+"/members", &members); err != nil {
		return nil, fmt.Errorf("members of %s: %w", group, err)
	}
	return members, nil
}

func (c *APIClient) Users(ctx context.Context) ([]UserEntry, error) {
	var users []UserEntry
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	return users, nil
}

func (c *APIClient) Groups(ctx context.Context) ([]string, error) {
	var groups []string
	if err := c.get(ctx, "/groups", &groups); err != nil {
		return nil, fmt.Errorf("group list: %w", err)
	}
	return groups, nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.log.DebugContext(ctx, "directory request", slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
