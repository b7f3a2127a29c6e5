package executor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/mohammed-shakir/ppo-client/internal/core/model"
	"github.com/mohammed-shakir/ppo-client/internal/core/observability"
)

// detail read from non-success bodies
const maxDetailBytes = 8 << 10

// TransportError reports a non-200/204 status or a failed round trip.
// StatusCode is zero when no response was received; Err is set when the
// connection failed, including while reading a 200 body.
type TransportError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("download request failed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("read upstream body (status %d): %v", e.StatusCode, e.Err)
	}
	if e.Detail == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Detail)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a 200 response whose payload could not be
// decompressed or parsed.
type DecodeError struct {
	Stage string // "gunzip" or "csv"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decode(ctx context.Context, log *slog.Logger, resp *http.Response) (*model.Table, error) {
	switch resp.StatusCode {
	case http.StatusNoContent:
		observability.IncUpstreamOutcome(upstreamName, observability.OutcomeNoContent)
		log.InfoContext(ctx, "no results found")
		return &model.Table{NoResults: true}, nil

	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			// the connection broke mid-body
			observability.IncUpstreamOutcome(upstreamName, observability.OutcomeTransportErr)
			return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
		}
		log.InfoContext(ctx, "unzipping response", "bytes", len(body))
		t, err := ParseBody(body)
		if err != nil {
			observability.IncUpstreamOutcome(upstreamName, observability.OutcomeDecodeError)
			return nil, err
		}
		observability.IncUpstreamOutcome(upstreamName, observability.OutcomeOK)
		observability.ObserveRows(t.Len())
		return t, nil

	default:
		observability.IncUpstreamOutcome(upstreamName, observability.OutcomeStatusError)
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(b)),
		}
	}
}

// ParseBody decompresses a gzip download and parses it as CSV. The first line
// echoes the query and is discarded; the second line is the header.
func ParseBody(gz []byte) (*model.Table, error) {
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, &DecodeError{Stage: "gunzip", Err: err}
	}
	defer func() { _ = zr.Close() }()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Stage: "gunzip", Err: err}
	}

	_, rest, found := bytes.Cut(raw, []byte("\n"))
	if !found {
		return nil, &DecodeError{Stage: "csv", Err: errors.New("missing header line")}
	}

	r := csv.NewReader(bytes.NewReader(rest))
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header line")
		}
		return nil, &DecodeError{Stage: "csv", Err: err}
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &DecodeError{Stage: "csv", Err: err}
	}
	if rows == nil {
		rows = [][]string{}
	}
	return model.NewTable(header, rows), nil
}
