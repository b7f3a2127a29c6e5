// Package executor issues download requests against the phenology portal and
// decodes the responses into tables.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/ppo-client/internal/core/model"
	"github.com/mohammed-shakir/ppo-client/internal/core/observability"
	"github.com/mohammed-shakir/ppo-client/internal/core/ppo"
	"github.com/mohammed-shakir/ppo-client/internal/logger"
)

const upstreamName = "ppo"

// Downloader runs one filtered download. A table with NoResults set means the
// portal matched nothing.
type Downloader interface {
	Download(ctx context.Context, f model.FilterSet) (*model.Table, error)
}

type Executor struct {
	logger   *slog.Logger
	client   *http.Client
	endpoint string
	startNow func() time.Time // for tests
}

func New(log *slog.Logger, client *http.Client, endpoint string) (*Executor, error) {
	if endpoint == "" {
		endpoint = ppo.DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint url %q must be absolute", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		logger:   log,
		client:   client,
		endpoint: endpoint,
		startNow: time.Now,
	}, nil
}

// Endpoint returns the download endpoint queries are built against.
func (e *Executor) Endpoint() string { return e.endpoint }

// Download builds the query for f, performs a single GET and decodes the reply.
// Validation failures return before any request is sent. No retry is attempted.
func (e *Executor) Download(ctx context.Context, f model.FilterSet) (*model.Table, error) {
	u, err := ppo.Build(e.endpoint, f)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithQueryID(ctx, ppo.Fingerprint(u))
	e.logger.InfoContext(ctx, "download query", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := e.startNow()
	resp, err := e.client.Do(req)
	if err != nil {
		observability.IncUpstreamOutcome(upstreamName, observability.OutcomeTransportErr)
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	dur := e.startNow().Sub(start)
	observability.ObserveUpstreamLatency(upstreamName, dur.Seconds())
	e.logger.DebugContext(ctx, "download response",
		"status", resp.StatusCode,
		"duration", dur.String())

	return decode(ctx, e.logger, resp)
}

// Decode interprets a download response. The caller keeps ownership of the body.
func (e *Executor) Decode(ctx context.Context, resp *http.Response) (*model.Table, error) {
	return decode(ctx, e.logger, resp)
}
