package ppo

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/mohammed-shakir/ppo-client/internal/core/model"
)

const outputArg = "&source=latitude,longitude,year,dayOfYear,plantStructurePresenceTypes"

func TestBuild_GenusAndYears(t *testing.T) {
	f := model.FilterSet{
		Genus:    model.String("Quercus"),
		FromYear: model.Int(1979),
		ToYear:   model.Int(2004),
	}
	got, err := Build(DefaultEndpoint, f)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := "http://api.plantphenology.org/v1/download/?q=%2Bgenus:Quercus+AND+%2Byear:>=1979+AND+%2Byear:<=2004+AND+source:USA-NPN,NEON" + outputArg
	if got != want {
		t.Fatalf("url mismatch\n got %s\nwant %s", got, want)
	}
}

func TestBuild_NoFilters(t *testing.T) {
	cases := []model.FilterSet{
		{},
		{Limit: 10},
	}
	for _, f := range cases {
		_, err := Build(DefaultEndpoint, f)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("filters %+v: expected ValidationError, got %v", f, err)
		}
	}
}

func TestBuild_NegativeLimit(t *testing.T) {
	_, err := Build(DefaultEndpoint, model.FilterSet{Genus: model.String("Acer"), Limit: -1})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBuild_Limit(t *testing.T) {
	f := model.FilterSet{Genus: model.String("Acer")}
	u, err := Build(DefaultEndpoint, f)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if strings.Contains(u, "&limit=") {
		t.Fatalf("no limit expected; got %s", u)
	}

	f.Limit = 25
	u, err = Build(DefaultEndpoint, f)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasSuffix(u, "&limit=25") {
		t.Fatalf("expected &limit=25 suffix; got %s", u)
	}
}

func TestBuild_BBoxOrderIndependent(t *testing.T) {
	a, _ := model.ParseBBox("44,-124,46,-122")
	b, _ := model.ParseBBox("46,-122,44,-124")

	ua, err := Build(DefaultEndpoint, model.FilterSet{BBox: &a})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ub, err := Build(DefaultEndpoint, model.FilterSet{BBox: &b})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ua != ub {
		t.Fatalf("bbox corner order changed the query\n a=%s\n b=%s", ua, ub)
	}
	want := "?q=latitude:>=44+AND+latitude:<=46+AND+longitude:>=-124+AND+longitude:<=-122+AND+source:USA-NPN,NEON"
	if !strings.Contains(ua, want) {
		t.Fatalf("bbox clauses missing\n got %s\nwant substring %s", ua, want)
	}
}

func TestNewQuery_BBoxSwapCorners(t *testing.T) {
	boxes := []model.BBox{
		{Lat1: 10.5, Lng1: 20.25, Lat2: -3, Lng2: 7},
		{Lat1: 0, Lng1: 0, Lat2: 0, Lng2: 0},
		{Lat1: -89.9, Lng1: 179.5, Lat2: 89.9, Lng2: -179.5},
	}
	for _, bb := range boxes {
		swapped := model.BBox{Lat1: bb.Lat2, Lng1: bb.Lng2, Lat2: bb.Lat1, Lng2: bb.Lng1}
		q1, err := NewQuery(model.FilterSet{BBox: &bb})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		q2, err := NewQuery(model.FilterSet{BBox: &swapped})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !reflect.DeepEqual(q1.Clauses, q2.Clauses) {
			t.Fatalf("clauses differ for %+v:\n%v\n%v", bb, q1.Clauses, q2.Clauses)
		}
		for _, c := range q1.Clauses {
			if c.Required {
				t.Fatalf("bbox clause %q must not carry the required marker", c.String())
			}
		}
	}
}

func TestNewQuery_ClauseOrder(t *testing.T) {
	bb := model.BBox{Lat1: 1, Lng1: 2, Lat2: 3, Lng2: 4}
	f := model.FilterSet{
		ToDay:           model.Int(200),
		FromDay:         model.Int(100),
		ToYear:          model.Int(2010),
		FromYear:        model.Int(2000),
		BBox:            &bb,
		TermID:          model.String("obo:PPO_0002313"),
		SpecificEpithet: model.String("alba"),
		Genus:           model.String("Quercus"),
	}
	q, err := NewQuery(f)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var got []string
	for _, c := range q.Clauses {
		got = append(got, c.String())
	}
	want := []string{
		"%2Bgenus:Quercus",
		"%2BspecificEpithet:alba",
		`%2BplantStructurePresenceTypes:"obo:PPO_0002313"`,
		"latitude:>=1",
		"latitude:<=3",
		"longitude:>=2",
		"longitude:<=4",
		"%2Byear:>=2000",
		"%2Byear:<=2010",
		"%2BdayOfYear:>=100",
		"%2BdayOfYear:<=200",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("clauses\n got %v\nwant %v", got, want)
	}
}

func TestBuild_NoScientificNotation(t *testing.T) {
	bb := model.BBox{Lat1: 0.0000001, Lng1: -150000000, Lat2: 1, Lng2: 1}
	u, err := Build(DefaultEndpoint, model.FilterSet{BBox: &bb})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if strings.Contains(u, "e-") || strings.Contains(u, "e+") {
		t.Fatalf("scientific notation in url: %s", u)
	}
	if !strings.Contains(u, "latitude:>=0.0000001") || !strings.Contains(u, "longitude:>=-150000000") {
		t.Fatalf("unexpected number rendering: %s", u)
	}
}

func TestBuild_ParsesAsURL(t *testing.T) {
	u, err := Build("http://localhost:9/v1/download/", model.FilterSet{TermID: model.String("obo:PPO_0002313")})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	if parsed.Host != "localhost:9" || parsed.Path != "/v1/download/" {
		t.Fatalf("unexpected url parts: %+v", parsed)
	}
	if !strings.HasPrefix(parsed.RawQuery, "q=%2BplantStructurePresenceTypes:") {
		t.Fatalf("raw query re-encoded: %s", parsed.RawQuery)
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("http://x/?q=a")
	if a != Fingerprint("http://x/?q=a") {
		t.Fatal("fingerprint not stable")
	}
	if len(a) != 16 {
		t.Fatalf("fingerprint len=%d want 16", len(a))
	}
	if a == Fingerprint("http://x/?q=b") {
		t.Fatal("distinct urls share a fingerprint")
	}
}
