package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/pkg/logger"
	"github.com/petgotchi/petgotchi/pkg/metrics"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "Petgotchi-Sync"
	defaultTimeout   = 10 * time.Second
	maxBodyBytes     = 4 << 20
)

// GitHub reads the public events of a GitHub user.
type GitHub struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	lookback  time.Duration
	transport http.RoundTripper
	logger    logger.Logger
}

// Option configures a GitHub feed.
type Option func(*GitHub)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(g *GitHub) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(g *GitHub) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLookback widens the since filter by d so events that arrived late
// relative to the watermark are still offered to the ledger.
func WithLookback(d time.Duration) Option {
	return func(g *GitHub) {
		if d >= 0 {
			g.lookback = d
		}
	}
}

// WithTransport sets the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *GitHub) {
		if rt != nil {
			g.transport = rt
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *GitHub) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGitHub creates a GitHub feed client.
func NewGitHub(opts ...Option) *GitHub {
	g := &GitHub{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("feed")
	}
	return g
}

// client returns an HTTP client that authenticates with credential when set.
func (g *GitHub) client(credential string) *http.Client {
	rt := g.transport
	if credential != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential}),
			Base:   g.transport,
		}
	}
	return &http.Client{Transport: rt, Timeout: g.timeout}
}

type githubRepo struct {
	Name string `json:"name"`
}

type githubEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Repo      githubRepo      `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Merged bool `json:"merged"`
	} `json:"pull_request"`
}

type reviewPayload struct {
	Action string `json:"action"`
}

// classify maps a GitHub event to a domain kind.
func classify(e githubEvent) model.EventKind {
	switch e.Type {
	case "PushEvent":
		return model.EventPush
	case "PullRequestEvent":
		var p pullRequestPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return model.EventUnknown
		}
		switch {
		case p.Action == "opened":
			return model.EventPullRequestOpened
		case p.Action == "closed" && p.PullRequest.Merged:
			return model.EventPullRequestMerged
		}
	case "PullRequestReviewEvent":
		var p reviewPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return model.EventUnknown
		}
		if p.Action == "created" || p.Action == "submitted" {
			return model.EventReviewSubmitted
		}
	}
	return model.EventUnknown
}

// FetchEventsSince implements Feed.
func (g *GitHub) FetchEventsSince(ctx context.Context, username, credential string, since time.Time) ([]model.Event, error) {
	start := time.Now()
	events, err := g.fetch(ctx, username, credential)
	metrics.RecordFeedLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		metrics.RecordFeedError()
		g.logger.Warn(ctx, "feed fetch failed", logger.String("username", username), logger.Error(err))
		return nil, err
	}

	cutoff := since
	if !cutoff.IsZero() {
		cutoff = cutoff.Add(-g.lookback)
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !cutoff.IsZero() && !e.CreatedAt.After(cutoff) {
			continue
		}
		out = append(out, model.Event{
			ID:        e.ID,
			Kind:      classify(e),
			CreatedAt: e.CreatedAt,
			Repo:      e.Repo.Name,
		})
	}
	g.logger.Debug(ctx, "feed fetched",
		logger.String("username", username),
		logger.Int("received", len(events)),
		logger.Int("kept", len(out)),
	)
	return out, nil
}

func (g *GitHub) fetch(ctx context.Context, username, credential string) ([]githubEvent, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: empty username", ErrFeedUnavailable)
	}
	endpoint := fmt.Sprintf("%s/users/%s/events/public", g.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFeedUnavailable, err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client(credential).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}
	var events []githubEvent
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&events); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrFeedUnavailable, err)
	}
	return events, nil
}

var _ Feed = (*GitHub)(nil)
