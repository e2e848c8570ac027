package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/tickets"
	"github.com/mohammad-safakhou/itinerary/models"
)

// HTTPError is the JSON body of every error response.
type HTTPError struct {
	Error string `json:"error"`
}

type generateRequest struct {
	Location  string   `json:"location"`
	Category  string   `json:"category"`
	Days      *int     `json:"days,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Budget    *string  `json:"budget,omitempty"`
}

func (r generateRequest) toModel() models.ItineraryRequest {
	days := models.DefaultDays
	if r.Days != nil {
		days = *r.Days
	}
	budget := ""
	if r.Budget != nil {
		budget = *r.Budget
	}
	return models.NewItineraryRequest(r.Location, r.Category, days, r.Interests, budget)
}

// generate accepts a request and answers with its ticket. Cached itineraries
// come back completed in the same response.
func (s *Server) generate(c echo.Context) error {
	var body generateRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	job, err := s.tickets.Submit(c.Request().Context(), body.toModel())
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, tickets.ErrClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		return err
	}

	t := job.Ticket()
	s.logger.Debug("ticket issued", zap.String("request_id", t.ID), zap.String("status", string(t.Status)))
	if t.Status == models.TicketProcessing {
		return c.JSON(http.StatusAccepted, t)
	}
	return c.JSON(http.StatusOK, t)
}

// status reports a ticket. Unknown ids are a normal not_found answer.
func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tickets.Poll(c.Param("request_id")))
}
