package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultDays is used when a request does not specify a trip length.
const DefaultDays = 3

// DefaultInterests is how an absent interest list is described to the agent.
const DefaultInterests = "general tourism"

// ErrInvalidRequest is returned when an itinerary request fails validation.
var ErrInvalidRequest = errors.New("invalid itinerary request")

// ItineraryRequest describes one itinerary to generate. Interests and Budget
// are optional; nil/empty means absent.
type ItineraryRequest struct {
	Location  string   `json:"location" validate:"required"`
	Category  string   `json:"category" validate:"required"`
	Days      int      `json:"days" validate:"min=1"`
	Interests []string `json:"interests,omitempty" validate:"omitempty,dive,required"`
	Budget    string   `json:"budget,omitempty"`
}

// NewItineraryRequest builds a normalised request. It does not validate.
func NewItineraryRequest(location, category string, days int, interests []string, budget string) ItineraryRequest {
	return ItineraryRequest{
		Location:  location,
		Category:  category,
		Days:      days,
		Interests: interests,
		Budget:    budget,
	}.Normalize()
}

// Normalize trims text fields, applies the default trip length and collapses
// empty optional fields to their absent form.
func (r ItineraryRequest) Normalize() ItineraryRequest {
	out := ItineraryRequest{
		Location: strings.TrimSpace(r.Location),
		Category: strings.TrimSpace(r.Category),
		Days:     r.Days,
		Budget:   strings.TrimSpace(r.Budget),
	}
	if out.Days == 0 {
		out.Days = DefaultDays
	}
	for _, interest := range r.Interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			out.Interests = append(out.Interests, trimmed)
		}
	}
	return out
}

// Validate checks the request against its field constraints.
func (r ItineraryRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(parts, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// HasBudget reports whether a budget descriptor was supplied.
func (r ItineraryRequest) HasBudget() bool { return r.Budget != "" }

// InterestsText renders interests as a comma-joined list.
func (r ItineraryRequest) InterestsText() string {
	if len(r.Interests) == 0 {
		return DefaultInterests
	}
	return strings.Join(r.Interests, ", ")
}

// SameVariant reports whether interests and budget exactly match, treating
// nil and empty interest lists as the same absent value. Order matters.
func (r ItineraryRequest) SameVariant(interests []string, budget string) bool {
	if r.Budget != budget || len(r.Interests) != len(interests) {
		return false
	}
	for i := range interests {
		if r.Interests[i] != interests[i] {
			return false
		}
	}
	return true
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Source is one scored piece of web evidence reported by the agent.
type Source struct {
	URL                  string  `json:"url"`
	TrustworthinessScore float64 `json:"trustworthiness_score"`
	RelevanceScore       float64 `json:"relevance_score"`
	ContentSnippet       string  `json:"content_snippet"`
}

// CombinedScore is the ranking key for a source.
func (s Source) CombinedScore() float64 {
	return s.TrustworthinessScore + s.RelevanceScore
}

// ProcessedData is the ranked evidence handed from the gatherer to the synthesizer.
// CombinedContext is always rendered from Sources.
type ProcessedData struct {
	Sources         []Source `json:"sources"`
	CombinedContext string   `json:"combined_context"`
}

// CacheEntry is the persisted form of a completed itinerary.
type CacheEntry struct {
	Location  string    `json:"location"`
	Category  string    `json:"category"`
	Days      int       `json:"days"`
	Interests []string  `json:"interests"`
	Budget    string    `json:"budget,omitempty"`
	Itinerary string    `json:"itinerary"`
	StoredAt  time.Time `json:"stored_at,omitempty"`
}

// TicketStatus is the externally visible state of a submitted request.
type TicketStatus string

const (
	TicketProcessing TicketStatus = "processing"
	TicketCompleted  TicketStatus = "completed"
	TicketError      TicketStatus = "error"
	TicketNotFound   TicketStatus = "not_found"
)

// Ticket is a snapshot of one request's lifecycle as seen by pollers.
type Ticket struct {
	ID        string       `json:"request_id,omitempty"`
	Status    TicketStatus `json:"status"`
	Itinerary string       `json:"itinerary,omitempty"`
	Message   string       `json:"message,omitempty"`
}
