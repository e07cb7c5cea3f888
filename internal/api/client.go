package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultURL = "http://localhost:3000/api"
	userAgent  = "spigell/recruiter (spigelly@gmail.com)"

	// TokenHeader carries the session token on authenticated requests.
	TokenHeader     = "x-auth-token"
	requestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
)

// TokenSource provides the token attached to authenticated requests.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Client struct {
	tokens     TokenSource
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, apiURL string, timeout time.Duration) *Client {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = DefaultURL
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// SetTokenSource sets where authenticated requests get their token from.
// The session manager is built on top of the client, so this is wired after construction.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

func (c *Client) url(path string) string {
	return c.APIURL + path
}
