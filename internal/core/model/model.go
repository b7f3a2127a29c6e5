// Package model defines core domain types shared across the client.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BBox is a rectangle given by two opposite corners in decimal degrees.
// The corners may arrive in either diagonal order.
type BBox struct {
	Lat1 float64 `validate:"gte=-90,lte=90"`
	Lng1 float64 `validate:"gte=-180,lte=180"`
	Lat2 float64 `validate:"gte=-90,lte=90"`
	Lng2 float64 `validate:"gte=-180,lte=180"`
}

// Bounds is a normalized bbox with min <= max on both axes.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (b BBox) Normalize() Bounds {
	return Bounds{
		MinLat: min(b.Lat1, b.Lat2),
		MaxLat: max(b.Lat1, b.Lat2),
		MinLng: min(b.Lng1, b.Lng2),
		MaxLng: max(b.Lng1, b.Lng2),
	}
}

// String representation matching the "lat1,long1,lat2,long2" input format
func (b BBox) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(b.Lat1) + "," + f(b.Lng1) + "," + f(b.Lat2) + "," + f(b.Lng2)
}

// ParseBBox parses "lat1,long1,lat2,long2".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, errors.New("expected 4 comma-separated values: lat1,long1,lat2,long2")
	}
	var vals [4]float64
	names := [4]string{"lat1", "long1", "lat2", "long2"}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("%s: %w", names[i], err)
		}
		vals[i] = f
	}
	return BBox{Lat1: vals[0], Lng1: vals[1], Lat2: vals[2], Lng2: vals[3]}, nil
}

// FilterSet holds the caller's download filters. A nil field is absent;
// Limit is absent when zero.
type FilterSet struct {
	Genus           *string `validate:"omitempty,min=1"`
	SpecificEpithet *string `validate:"omitempty,min=1"`
	TermID          *string `validate:"omitempty,min=1"`
	FromYear        *int    `validate:"omitempty,gte=0"`
	ToYear          *int    `validate:"omitempty,gte=0"`
	FromDay         *int    `validate:"omitempty,gte=1,lte=366"`
	ToDay           *int    `validate:"omitempty,gte=1,lte=366"`
	BBox            *BBox
	Limit           int `validate:"gte=0"`
}

// HasFilter reports whether any field other than Limit is set.
func (f FilterSet) HasFilter() bool {
	return f.Genus != nil ||
		f.SpecificEpithet != nil ||
		f.TermID != nil ||
		f.FromYear != nil ||
		f.ToYear != nil ||
		f.FromDay != nil ||
		f.ToDay != nil ||
		f.BBox != nil
}

func String(s string) *string { return &s }

func Int(n int) *int { return &n }
