package core

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/mohammad-safakhou/itinerary/models"
)

// GatherPromptTemplate asks the agent to research the destination and report scored sources.
const GatherPromptTemplate = `I need comprehensive travel information about {{.Location}} with a focus on {{.Category}} attractions.

Please search the web for:
{{.Queries}}

For each source you find:
1. Evaluate its trustworthiness (consider if it's from a reputable travel site, tourism board, etc.)
2. Assess its relevance to the search query
3. Extract key information about attractions, activities, logistics, and practical tips

Return the information as a structured JSON with:
- sources: array of objects with url, trustworthiness_score (0-1), relevance_score (0-1), and content_snippet
- The content snippets should focus on practical information useful for creating a {{.Days}}-day itinerary
`

// SynthesisPromptTemplate turns the combined research context into a markdown itinerary.
const SynthesisPromptTemplate = `Based on the following travel research for {{.Location}} with a focus on {{.Category}} attractions,
create a detailed {{.Days}}-day itinerary for a traveler interested in {{.Interests}}{{.Budget}}.

{{.Context}}

# Instructions for Itinerary Creation:

1. Create a day-by-day itinerary with logical geographical grouping of attractions
2. For each day include:
   - Morning activities/attractions (including recommended start time)
   - Lunch recommendation (with cuisine type)
   - Afternoon activities/attractions
   - Evening activities and dinner recommendation
   - Approximate costs where available
   - Transportation tips between locations
3. Start with a brief overview of {{.Location}} focusing on {{.Category}} aspects
4. Include practical tips like best times to visit specific attractions, ticket information, dress codes, etc.
5. Conclude with general travel tips specific to {{.Location}}

Format the response as a well-structured markdown document with clear headings and bullet points.
`

var (
	tmplGather    = template.Must(template.New("gather").Parse(GatherPromptTemplate))
	tmplSynthesis = template.Must(template.New("synthesis").Parse(SynthesisPromptTemplate))
)

// BuildSearchQueries returns the five base queries, one per interest and one
// for the budget when present, in that order.
func BuildSearchQueries(req models.ItineraryRequest) []string {
	loc, cat := req.Location, req.Category
	queries := []string{
		fmt.Sprintf("best places to visit in %s for %s tourism", loc, cat),
		fmt.Sprintf("top attractions in %s %s", loc, cat),
		fmt.Sprintf("travel guide %s %s", loc, cat),
		fmt.Sprintf("%s itinerary %d days", loc, req.Days),
		fmt.Sprintf("%s tourist spots %s", loc, cat),
	}
	for _, interest := range req.Interests {
		queries = append(queries, fmt.Sprintf("%s %s attractions", loc, interest))
	}
	if req.HasBudget() {
		queries = append(queries, fmt.Sprintf("%s travel on %s budget", loc, req.Budget))
	}
	return queries
}

// JoinQueries renders queries as "(q1) AND (q2) ...".
func JoinQueries(queries []string) string {
	parts := make([]string, len(queries))
	for i, q := range queries {
		parts[i] = "(" + q + ")"
	}
	return strings.Join(parts, " AND ")
}

// BuildGatherPrompt renders the research prompt for the given queries.
func BuildGatherPrompt(req models.ItineraryRequest, queries []string) string {
	return render(tmplGather, map[string]any{
		"Location": req.Location,
		"Category": req.Category,
		"Days":     req.Days,
		"Queries":  JoinQueries(queries),
	})
}

// BuildSynthesisPrompt renders the itinerary prompt around the gathered context.
func BuildSynthesisPrompt(req models.ItineraryRequest, data models.ProcessedData) string {
	budget := ""
	if req.HasBudget() {
		budget = fmt.Sprintf(" with a %s budget", req.Budget)
	}
	return render(tmplSynthesis, map[string]any{
		"Location":  req.Location,
		"Category":  req.Category,
		"Days":      req.Days,
		"Interests": req.InterestsText(),
		"Budget":    budget,
		"Context":   data.CombinedContext,
	})
}

func render(t *template.Template, data any) string {
	var b strings.Builder
	// templates are static and only reference keys we always supply
	if err := t.Execute(&b, data); err != nil {
		panic(fmt.Sprintf("render %s prompt: %v", t.Name(), err))
	}
	return b.String()
}
