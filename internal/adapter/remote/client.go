package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "user-mvi/internal/domain/user"
)

// API is the remote user service.
type API interface {
	GetUsers(ctx context.Context) ([]domain.User, error)
	AddUser(ctx context.Context, u domain.User) (domain.User, error)
	RemoveUser(ctx context.Context, id string) (domain.User, error)
	Search(ctx context.Context, query string) ([]domain.User, error)
}

// Config holds the remote service client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP implementation of API. Every error it returns is a
// domain.Error.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote base url %q: missing scheme or host", cfg.BaseURL)
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}, nil
}

// GetUsers fetches all users.
func (c *Client) GetUsers(ctx context.Context) ([]domain.User, error) {
	var rs []UserResponse
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, "", &rs); err != nil {
		return nil, err
	}
	return c.users(rs)
}

// AddUser creates u and returns the stored user.
func (c *Client) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	var r UserResponse
	if err := c.do(ctx, http.MethodPost, "/users", nil, newUserBody(u), "", &r); err != nil {
		return domain.User{}, err
	}
	return c.user(r)
}

// RemoveUser deletes the user with id and returns it.
func (c *Client) RemoveUser(ctx context.Context, id string) (domain.User, error) {
	var r UserResponse
	if err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, id, &r); err != nil {
		return domain.User{}, err
	}
	return c.user(r)
}

// Search returns the users matching query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.User, error) {
	var rs []UserResponse
	if err := c.do(ctx, http.MethodGet, "/users/search", url.Values{"q": {query}}, nil, "", &rs); err != nil {
		return nil, err
	}
	return c.users(rs)
}

func (c *Client) user(r UserResponse) (domain.User, error) {
	u, err := r.toDomain()
	if err != nil {
		c.log.Warn("invalid user in response", zap.String("id", r.ID), zap.Error(err))
		return domain.User{}, domain.NewUnexpectedError(fmt.Errorf("invalid user %s in response: %w", r.ID, err))
	}
	return u, nil
}

func (c *Client) users(rs []UserResponse) ([]domain.User, error) {
	users, err := toDomainUsers(rs)
	if err != nil {
		c.log.Warn("invalid user in response", zap.Error(err))
		return nil, domain.NewUnexpectedError(fmt.Errorf("invalid user in response: %w", err))
	}
	return users, nil
}

// do performs a JSON request and decodes a 2xx body into out. id is the user
// the request targets, if any, and is used for not-found errors.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, id string, out any) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.NewUnexpectedError(fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return domain.NewUnexpectedError(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("url", u.String()),
			zap.Error(err),
		)
		return domain.NewNetworkError(err)
	}
	defer resp.Body.Close()

	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapError(resp.StatusCode, data, id)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.NewUnexpectedError(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// mapError turns a non-2xx response into a domain.Error.
func mapError(status int, body []byte, id string) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		er = ErrorResponse{}
	}

	switch er.Error {
	case CodeUserNotFound:
		return domain.NewNotFoundError(id)
	case CodeInvalidID:
		return domain.NewInvalidIDError(id)
	case CodeValidationFailed:
		errs := make([]domain.ValidationError, 0, len(er.Data))
		for _, code := range er.Data {
			if v, ok := domain.ParseValidationError(code); ok {
				errs = append(errs, v)
			}
		}
		if verrs := domain.NewValidationErrors(errs...); verrs != nil {
			return domain.NewValidationFailedError(verrs)
		}
	}

	if status >= http.StatusInternalServerError {
		return domain.NewServerError(status, details(er, body))
	}
	return domain.NewUnexpectedError(errors.New(http.StatusText(status) + ": " + details(er, body)))
}

func details(er ErrorResponse, body []byte) string {
	if er.Message != "" {
		return er.Message
	}
	return strings.TrimSpace(string(body))
}
