package core

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mohammad-safakhou/itinerary/models"
)

func TestParseSourcesPlainJSON(t *testing.T) {
	raw := `{"sources":[{"url":"https://a.example","trustworthiness_score":0.9,"relevance_score":0.8,"content_snippet":"Temples"}]}`
	res := ParseSources(raw)
	if !res.OK() {
		t.Fatalf("expected structured parse, got %v", res.Err)
	}
	if len(res.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(res.Sources))
	}
	src := res.Sources[0]
	if src.URL != "https://a.example" || src.TrustworthinessScore != 0.9 || src.RelevanceScore != 0.8 || src.ContentSnippet != "Temples" {
		t.Fatalf("unexpected source: %+v", src)
	}
}

func TestParseSourcesMissingFieldsDefault(t *testing.T) {
	res := ParseSources(`{"sources":[{"url":null},{}]}`)
	if !res.OK() {
		t.Fatalf("expected structured parse, got %v", res.Err)
	}
	for i, src := range res.Sources {
		if src != (models.Source{}) {
			t.Fatalf("source %d should be zero valued, got %+v", i, src)
		}
	}
}

func TestParseSourcesRepairsWrappedOutput(t *testing.T) {
	payload := `{"sources":[{"url":"https://b.example","trustworthiness_score":0.5,"relevance_score":0.5,"content_snippet":"use {braces} freely"}]}`
	cases := map[string]string{
		"fenced":   "Here is what I found:\n```json\n" + payload + "\n```\nEnjoy!",
		"embedded": "Sure! " + payload + " Let me know if you need more.",
		"later":    "Note {x} and [1] then " + payload,
		"array":    "Found these: " + payload[len(`{"sources":`):len(payload)-1],
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			res := ParseSources(raw)
			if !res.OK() {
				t.Fatalf("expected repair to succeed, got %v", res.Err)
			}
			if len(res.Sources) != 1 || res.Sources[0].ContentSnippet != "use {braces} freely" {
				t.Fatalf("unexpected sources: %+v", res.Sources)
			}
		})
	}
}

func TestParseSourcesBareArrayKeepsScores(t *testing.T) {
	raw := `[{"url":"https://a","trustworthiness_score":0.9,"relevance_score":0.4},{"url":"https://b","trustworthiness_score":0.2,"relevance_score":0.3}]`
	res := ParseSources(raw)
	if !res.OK() {
		t.Fatalf("expected structured parse, got %v", res.Err)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(res.Sources))
	}
	if res.Sources[0].URL != "https://a" || res.Sources[0].TrustworthinessScore != 0.9 || res.Sources[1].RelevanceScore != 0.3 {
		t.Fatalf("scores lost: %+v", res.Sources)
	}
}

func TestParseSourcesObjectWithoutSourcesIsEmpty(t *testing.T) {
	for _, raw := range []string{`{"results":[]}`, "```json\n{\"note\":\"nothing found\"}\n```"} {
		res := ParseSources(raw)
		if !res.OK() {
			t.Fatalf("%q: expected empty source list, got %v", raw, res.Err)
		}
		if len(res.Sources) != 0 {
			t.Fatalf("%q: expected no sources, got %+v", raw, res.Sources)
		}
	}
}

func TestDecodeSourcesRejectsTrailingData(t *testing.T) {
	schema, err := SourcesSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, doc := range []string{`{"sources":[]}}`, `{"sources":[]}]`, `{"sources":[]} {}`} {
		if _, err := decodeSources(schema, doc, true); err == nil {
			t.Fatalf("%q: expected trailing data error", doc)
		}
	}
	if _, err := decodeSources(schema, `{"sources":[]}  `, true); err != nil {
		t.Fatalf("trailing whitespace should be accepted: %v", err)
	}
}

func TestParseSourcesRejectsNonConformingOutput(t *testing.T) {
	cases := map[string]string{
		"prose":        "Kyoto is lovely in autumn.",
		"stray braces": "Pack {light} and see [the shrines] or {}.",
		"empty array":  "Nothing here: []",
		"wrong type":   `{"sources":"none"}`,
		"bad score":    `{"sources":[{"trustworthiness_score":"high"}]}`,
		"empty":        "",
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			res := ParseSources(raw)
			if res.OK() {
				t.Fatalf("expected failure, got %+v", res.Sources)
			}
			if !errors.Is(res.Err, ErrMalformedOutput) {
				t.Fatalf("expected ErrMalformedOutput, got %v", res.Err)
			}
		})
	}
}

func TestParseSourcesClampsAndBounds(t *testing.T) {
	long := strings.Repeat("x", MaxSnippetChars+50)
	res := ParseSources(`{"sources":[{"trustworthiness_score":1.7,"relevance_score":-0.2,"content_snippet":"` + long + `"}]}`)
	if !res.OK() {
		t.Fatalf("parse: %v", res.Err)
	}
	src := res.Sources[0]
	if src.TrustworthinessScore != 1 || src.RelevanceScore != 0 {
		t.Fatalf("scores not clamped: %+v", src)
	}
	if len(src.ContentSnippet) != MaxSnippetChars {
		t.Fatalf("snippet not bounded: %d", len(src.ContentSnippet))
	}
}

func TestFallbackSource(t *testing.T) {
	raw := strings.Repeat("é", MaxSnippetChars+10)
	src := FallbackSource(raw)
	if src.URL != FallbackSourceURL {
		t.Fatalf("unexpected url %q", src.URL)
	}
	if src.TrustworthinessScore != 0.7 || src.RelevanceScore != 0.7 {
		t.Fatalf("unexpected scores: %+v", src)
	}
	if n := utf8.RuneCountInString(src.ContentSnippet); n != MaxSnippetChars {
		t.Fatalf("expected %d characters, got %d", MaxSnippetChars, n)
	}
	short := FallbackSource("brief")
	if short.ContentSnippet != "brief" {
		t.Fatalf("short output should be kept whole, got %q", short.ContentSnippet)
	}
}

func TestRankSourcesIsStableDescending(t *testing.T) {
	sources := []models.Source{
		{URL: "low", TrustworthinessScore: 0.1, RelevanceScore: 0.1},
		{URL: "tie-a", TrustworthinessScore: 0.5, RelevanceScore: 0.5},
		{URL: "high", TrustworthinessScore: 0.9, RelevanceScore: 0.9},
		{URL: "tie-b", TrustworthinessScore: 0.6, RelevanceScore: 0.4},
	}
	RankSources(sources)
	want := []string{"high", "tie-a", "tie-b", "low"}
	for i, url := range want {
		if sources[i].URL != url {
			t.Fatalf("position %d: want %s, got %s", i, url, sources[i].URL)
		}
	}
}

func TestBuildCombinedContextFormat(t *testing.T) {
	req := models.NewItineraryRequest("Kyoto", "cultural", 3, nil, "")
	sources := []models.Source{
		{URL: "https://a", TrustworthinessScore: 0.9, RelevanceScore: 0.85, ContentSnippet: "alpha"},
		{URL: "https://b", TrustworthinessScore: 0.5, RelevanceScore: 0.25, ContentSnippet: "beta"},
	}
	want := "# Travel Information for Kyoto - cultural\n\n" +
		"## Source 1: https://a\nTrustworthiness: 0.90, Relevance: 0.85\n\nalpha\n\n---\n\n" +
		"## Source 2: https://b\nTrustworthiness: 0.50, Relevance: 0.25\n\nbeta\n\n---\n\n"
	if got := BuildCombinedContext(req, sources); got != want {
		t.Fatalf("unexpected context:\n%q\nwant:\n%q", got, want)
	}
}

func TestBuildCombinedContextLimitsToTopFive(t *testing.T) {
	req := models.NewItineraryRequest("Lisbon", "food", 2, nil, "")
	var sources []models.Source
	for i := 0; i < 8; i++ {
		sources = append(sources, models.Source{URL: "https://s" + string(rune('0'+i))})
	}
	ctx := BuildCombinedContext(req, sources)
	if strings.Count(ctx, "## Source ") != MaxContextSources {
		t.Fatalf("expected %d sources in context, got %d", MaxContextSources, strings.Count(ctx, "## Source "))
	}
	if strings.Contains(ctx, "https://s5") {
		t.Fatalf("sixth source must not be rendered")
	}
	if got := BuildCombinedContext(req, nil); got != "# Travel Information for Lisbon - food\n\n" {
		t.Fatalf("empty source list should render header only, got %q", got)
	}
}
