package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/ppo-client/internal/core/config"
	"github.com/mohammed-shakir/ppo-client/internal/core/executor"
	"github.com/mohammed-shakir/ppo-client/internal/core/model"
	"github.com/mohammed-shakir/ppo-client/internal/core/observability"
	"github.com/mohammed-shakir/ppo-client/internal/core/ppo"
	"github.com/mohammed-shakir/ppo-client/internal/mapper"
)

const route = "/download"

// validates download params, runs the download and writes the table as CSV
func HandleDownload(logger *slog.Logger, cfg config.Config, d executor.Downloader, m mapper.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
		}()

		f, res, err := ParseDownloadRequest(r.URL.Query(), cfg.H3Res)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}

		tbl, err := d.Download(r.Context(), f)
		if err != nil {
			writeDownloadError(sw, logger, r, err)
			return
		}
		if tbl.NoResults {
			sw.WriteHeader(http.StatusNoContent)
			return
		}

		if res >= 0 && m != nil {
			if err := m.AnnotateCells(tbl, res); err != nil {
				logger.ErrorContext(r.Context(), "h3 annotate failed", "err", err)
				http.Error(sw, "h3 annotate: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}

		sw.Header().Set("Content-Type", "text/csv; charset=utf-8")
		sw.Header().Set("X-Row-Count", strconv.Itoa(tbl.Len()))
		if err := tbl.WriteCSV(sw); err != nil {
			logger.WarnContext(r.Context(), "write csv", "err", err)
		}
	}
}

func writeDownloadError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var ve *ppo.ValidationError
	var te *executor.TransportError
	var de *executor.DecodeError
	switch {
	case errors.As(err, &ve):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &te), errors.As(err, &de):
		logger.ErrorContext(r.Context(), "download failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		logger.ErrorContext(r.Context(), "download failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseDownloadRequest maps query params onto a filter set. The returned H3
// resolution is -1 when no annotation was requested.
func ParseDownloadRequest(q url.Values, defaultRes int) (model.FilterSet, int, error) {
	var f model.FilterSet

	str := func(k string) *string {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return &v
		}
		return nil
	}
	f.Genus = str("genus")
	f.SpecificEpithet = str("specificEpithet")
	f.TermID = str("termID")

	ints := []struct {
		key string
		dst **int
	}{
		{"fromYear", &f.FromYear},
		{"toYear", &f.ToYear},
		{"fromDay", &f.FromDay},
		{"toDay", &f.ToDay},
	}
	for _, it := range ints {
		n, err := optInt(q, it.key)
		if err != nil {
			return model.FilterSet{}, -1, err
		}
		*it.dst = n
	}

	if raw := strings.TrimSpace(q.Get("bbox")); raw != "" {
		bb, err := model.ParseBBox(raw)
		if err != nil {
			return model.FilterSet{}, -1, fmt.Errorf("invalid bbox: %w", err)
		}
		f.BBox = &bb
	}

	limit, err := optInt(q, "limit")
	if err != nil {
		return model.FilterSet{}, -1, err
	}
	if limit != nil {
		if *limit <= 0 {
			return model.FilterSet{}, -1, errors.New("limit must be a positive integer")
		}
		f.Limit = *limit
	}

	res := defaultRes
	h3res, err := optInt(q, "h3res")
	if err != nil {
		return model.FilterSet{}, -1, err
	}
	if h3res != nil {
		res = *h3res
	}
	if res > 15 || res < -1 {
		return model.FilterSet{}, -1, fmt.Errorf("h3res must be in 0..15, or -1 to disable (got %d)", res)
	}

	if err := f.Validate(); err != nil {
		return model.FilterSet{}, -1, err
	}
	if !f.HasFilter() {
		return model.FilterSet{}, -1, errors.New("at least one filter other than limit is required")
	}
	return f, res, nil
}

func optInt(q url.Values, k string) (*int, error) {
	v := strings.TrimSpace(q.Get(k))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s: parse int: %w", k, err)
	}
	return &n, nil
}
