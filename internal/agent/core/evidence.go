package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mohammad-safakhou/itinerary/models"
)

const (
	// MaxContextSources bounds how many ranked sources are rendered into the context.
	MaxContextSources = 5
	// MaxSnippetChars bounds every snippet, including the fallback one.
	MaxSnippetChars = 10000
	// FallbackSourceURL marks the synthetic source built from unstructured output.
	FallbackSourceURL = "[Extracted from unstructured response]"
	// FallbackScore is used for both scores of the synthetic source.
	FallbackScore = 0.7
)

// ErrMalformedOutput means no part of the agent output was a valid source list.
var ErrMalformedOutput = errors.New("agent output is not a valid source list")

//go:embed sources_schema.json
var sourcesSchemaJSON string

var (
	sourcesCompileOnce sync.Once
	sourcesSchema      *jsonschema.Schema
	sourcesCompileErr  error
)

// SourcesSchema returns the compiled schema for the gatherer's JSON output.
func SourcesSchema() (*jsonschema.Schema, error) {
	sourcesCompileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("sources_schema.json", strings.NewReader(sourcesSchemaJSON)); err != nil {
			sourcesCompileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("sources_schema.json")
		if err != nil {
			sourcesCompileErr = fmt.Errorf("compile sources schema: %w", err)
			return
		}
		sourcesSchema = schema
	})
	return sourcesSchema, sourcesCompileErr
}

// ParseResult is the outcome of reading agent output. Err is nil exactly when
// Sources came from a schema-valid JSON document.
type ParseResult struct {
	Sources []models.Source
	Err     error
}

// OK reports whether structured sources were recovered.
func (r ParseResult) OK() bool { return r.Err == nil }

// ParseSources reads the agent output as a source list. It tries the whole
// text, then a fenced ```json block, then every balanced JSON object or array
// in the text, in order. A bare array of sources is accepted as the list.
func ParseSources(raw string) ParseResult {
	schema, err := SourcesSchema()
	if err != nil {
		return ParseResult{Err: err}
	}
	var lastErr error
	for _, candidate := range candidateDocuments(raw) {
		sources, err := decodeSources(schema, candidate.doc, candidate.whole)
		if err == nil {
			return ParseResult{Sources: sources}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no JSON document found")
	}
	return ParseResult{Err: fmt.Errorf("%w: %v", ErrMalformedOutput, lastErr)}
}

// FallbackSource wraps unstructured output as a single mid-scored source.
func FallbackSource(raw string) models.Source {
	return models.Source{
		URL:                  FallbackSourceURL,
		TrustworthinessScore: FallbackScore,
		RelevanceScore:       FallbackScore,
		ContentSnippet:       truncateChars(raw, MaxSnippetChars),
	}
}

// RankSources orders sources by descending combined score. Ties keep their
// original relative order.
func RankSources(sources []models.Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].CombinedScore() > sources[j].CombinedScore()
	})
}

// BuildCombinedContext renders the header and up to MaxContextSources sources.
// Sources are expected to be ranked already.
func BuildCombinedContext(req models.ItineraryRequest, sources []models.Source) string {
	top := sources
	if len(top) > MaxContextSources {
		top = top[:MaxContextSources]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Travel Information for %s - %s\n\n", req.Location, req.Category)
	for i, src := range top {
		fmt.Fprintf(&b, "## Source %d: %s\n", i+1, src.URL)
		fmt.Fprintf(&b, "Trustworthiness: %.2f, Relevance: %.2f\n\n", src.TrustworthinessScore, src.RelevanceScore)
		b.WriteString(src.ContentSnippet)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// candidate is one JSON document to try. whole marks documents the agent
// emitted on purpose (the entire output or a fenced block) rather than spans
// cut out of prose.
type candidate struct {
	doc   string
	whole bool
}

func candidateDocuments(raw string) []candidate {
	var out []candidate
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		out = append(out, candidate{doc: trimmed, whole: true})
	}
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			out = append(out, candidate{doc: inner, whole: true})
		}
	}
	for _, span := range balancedSpans(raw) {
		out = append(out, candidate{doc: span})
	}
	return out
}

var errNoSourceList = errors.New("document does not carry a source list")

// decodeSources validates doc and returns its sources. A top-level array is
// read as the source list itself. For whole documents an object without a
// "sources" key is an empty list; spans cut from prose must name it and must
// not be empty arrays.
func decodeSources(schema *jsonschema.Schema, doc string, whole bool) ([]models.Source, error) {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON document")
	}
	switch v := generic.(type) {
	case []any:
		if !whole && len(v) == 0 {
			return nil, errNoSourceList
		}
		generic = map[string]any{"sources": v}
	case map[string]any:
		if _, ok := v["sources"]; !ok {
			if !whole {
				return nil, errNoSourceList
			}
			v["sources"] = []any{}
		}
	}
	if err := schema.Validate(generic); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Sources []models.Source `json:"sources"`
	}
	if err := json.Unmarshal(normalized, &payload); err != nil {
		return nil, err
	}
	sources := make([]models.Source, 0, len(payload.Sources))
	for _, src := range payload.Sources {
		src.TrustworthinessScore = clampScore(src.TrustworthinessScore)
		src.RelevanceScore = clampScore(src.RelevanceScore)
		src.ContentSnippet = truncateChars(src.ContentSnippet, MaxSnippetChars)
		sources = append(sources, src)
	}
	return sources, nil
}

// balancedSpans returns every top-level balanced {...} or [...] span in s,
// ignoring brackets inside string literals.
func balancedSpans(s string) []string {
	var spans []string
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, s[start:i+1])
				}
			}
		}
	}
	return spans
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncateChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
