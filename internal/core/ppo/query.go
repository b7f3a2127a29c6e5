// Package ppo builds download queries for the plant phenology data portal.
package ppo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/ppo-client/internal/core/model"
)

const (
	DefaultEndpoint = "http://api.plantphenology.org/v1/download/"

	// SourceRestriction limits results to two of the upstream datasets.
	// It is always appended.
	SourceRestriction = "source:USA-NPN,NEON"

	andSep       = "+AND+"
	requiredMark = "%2B"
)

// OutputFields is the fixed column list requested from the portal.
var OutputFields = []string{"latitude", "longitude", "year", "dayOfYear", "plantStructurePresenceTypes"}

// ClauseOrder is the order in which filter fields appear in the query.
var ClauseOrder = []string{
	"genus",
	"specificEpithet",
	"termID",
	"bbox",
	"fromYear",
	"toYear",
	"fromDay",
	"toDay",
}

// ValidationError is returned before any network activity when the
// filter set cannot produce a query.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid filters: " + e.Reason
}

// Clause is one filter condition, e.g. year:>=1979.
type Clause struct {
	Field    string
	Op       string // "", ">=", "<="
	Value    string
	Required bool
	Quoted   bool
}

func (c Clause) String() string {
	var b strings.Builder
	if c.Required {
		b.WriteString(requiredMark)
	}
	b.WriteString(c.Field)
	b.WriteByte(':')
	b.WriteString(c.Op)
	if c.Quoted {
		b.WriteByte('"')
		b.WriteString(c.Value)
		b.WriteByte('"')
	} else {
		b.WriteString(c.Value)
	}
	return b.String()
}

// Query is the structured form of a download request. It is rendered once
// by String.
type Query struct {
	Clauses []Clause
	Fields  []string
	Limit   int
}

func (q Query) String() string {
	parts := make([]string, 0, len(q.Clauses)+1)
	for _, c := range q.Clauses {
		parts = append(parts, c.String())
	}
	parts = append(parts, SourceRestriction)

	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strings.Join(parts, andSep))
	b.WriteString("&source=")
	b.WriteString(strings.Join(q.Fields, ","))
	if q.Limit > 0 {
		b.WriteString("&limit=")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String()
}

// NewQuery converts a filter set into clauses following ClauseOrder.
func NewQuery(f model.FilterSet) (Query, error) {
	if !f.HasFilter() {
		return Query{}, &ValidationError{Reason: "at least one filter other than limit is required"}
	}
	if f.Limit < 0 {
		return Query{}, &ValidationError{Reason: fmt.Sprintf("limit must be positive (got %d)", f.Limit)}
	}

	q := Query{Fields: OutputFields, Limit: f.Limit}
	for _, key := range ClauseOrder {
		q.Clauses = append(q.Clauses, clausesFor(key, f)...)
	}
	return q, nil
}

func clausesFor(key string, f model.FilterSet) []Clause {
	req := func(field, op, val string) []Clause {
		return []Clause{{Field: field, Op: op, Value: val, Required: true}}
	}
	switch key {
	case "genus":
		if f.Genus != nil {
			return req("genus", "", *f.Genus)
		}
	case "specificEpithet":
		if f.SpecificEpithet != nil {
			return req("specificEpithet", "", *f.SpecificEpithet)
		}
	case "termID":
		if f.TermID != nil {
			return []Clause{{Field: "plantStructurePresenceTypes", Value: *f.TermID, Required: true, Quoted: true}}
		}
	case "bbox":
		if f.BBox != nil {
			return bboxClauses(f.BBox.Normalize())
		}
	case "fromYear":
		if f.FromYear != nil {
			return req("year", ">=", strconv.Itoa(*f.FromYear))
		}
	case "toYear":
		if f.ToYear != nil {
			return req("year", "<=", strconv.Itoa(*f.ToYear))
		}
	case "fromDay":
		if f.FromDay != nil {
			return req("dayOfYear", ">=", strconv.Itoa(*f.FromDay))
		}
	case "toDay":
		if f.ToDay != nil {
			return req("dayOfYear", "<=", strconv.Itoa(*f.ToDay))
		}
	}
	return nil
}

// bbox sub-clauses carry no required marker.
func bboxClauses(b model.Bounds) []Clause {
	return []Clause{
		{Field: "latitude", Op: ">=", Value: formatFloat(b.MinLat)},
		{Field: "latitude", Op: "<=", Value: formatFloat(b.MaxLat)},
		{Field: "longitude", Op: ">=", Value: formatFloat(b.MinLng)},
		{Field: "longitude", Op: "<=", Value: formatFloat(b.MaxLng)},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Build returns the full download URL for f against endpoint.
func Build(endpoint string, f model.FilterSet) (string, error) {
	q, err := NewQuery(f)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return endpoint + "?" + q.String(), nil
}

// Fingerprint returns a short stable id for a query URL, used to correlate logs.
func Fingerprint(queryURL string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(queryURL))
}
