package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reading-room/internal/queue"
	"github.com/iliyamo/library-reading-room/internal/schedule"
	queuepub "github.com/iliyamo/library-reading-room/internal/service"
)

// SessionHandler serves the reservation endpoints. Admission logic lives
// in schedule.Manager; the handler binds requests, maps domain errors to
// status codes and publishes booking events.
type SessionHandler struct {
	Manager   *schedule.Manager
	Occupancy *schedule.OccupancyAggregator
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(m *schedule.Manager, o *schedule.OccupancyAggregator) *SessionHandler {
	return &SessionHandler{Manager: m, Occupancy: o}
}

// Create books a new reading session for the authenticated user.
func (h *SessionHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req schedule.SessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserID = uid
	if len(req.BookIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_ids must not be empty"})
	}

	view, err := h.Manager.Create(c.Request().Context(), req)
	if err != nil {
		return sessionError(c, err)
	}

	// Best-effort event; a broker outage never fails the booking.
	go publishBooked(*view)

	return c.JSON(http.StatusCreated, view)
}

// Update replaces an existing session wholesale. Admin only; the request
// body names the owning user explicitly.
func (h *SessionHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req schedule.SessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	if len(req.BookIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_ids must not be empty"})
	}

	view, err := h.Manager.Update(c.Request().Context(), id, req)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Delete removes a session by id.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Manager.Delete(c.Request().Context(), id); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOwn returns the authenticated user's sessions.
func (h *SessionHandler) ListOwn(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	views, err := h.Manager.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// Filter returns sessions matching optional ?user_id=, ?start_time= and
// ?end_time= (RFC 3339) query parameters. Admin only.
func (h *SessionHandler) Filter(c echo.Context) error {
	var f schedule.SessionFilter
	if raw := c.QueryParam("user_id"); raw != "" {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
		}
		f.UserID = uid
	}
	if raw := c.QueryParam("start_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
		}
		f.StartTime = &t
	}
	if raw := c.QueryParam("end_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
		}
		f.EndTime = &t
	}
	views, err := h.Manager.Filter(c.Request().Context(), f)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// ReservedTimesForBook lists the reserved spans of a book on ?date=
// (YYYY-MM-DD).
func (h *SessionHandler) ReservedTimesForBook(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}
	spans, err := h.Manager.ReservedTimesForBook(c.Request().Context(), id, date)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, spans)
}

// ReservedTimesForUser lists the authenticated user's reserved spans on
// ?date= (YYYY-MM-DD).
func (h *SessionHandler) ReservedTimesForUser(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}
	spans, err := h.Manager.ReservedTimesForUser(c.Request().Context(), uid, date)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, spans)
}

// OccupancyRates returns the hourly utilization heat-map over the
// trailing window.
func (h *SessionHandler) OccupancyRates(c echo.Context) error {
	rates, err := h.Occupancy.HourlyRates(c.Request().Context())
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, rates)
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

// sessionError maps schedule package errors onto HTTP status codes.
// Validation failures are 400, capacity conflicts 409, missing
// references 404 and storage faults 500.
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, schedule.ErrInvalidInterval),
		errors.Is(err, schedule.ErrOutsideLeadWindow),
		errors.Is(err, schedule.ErrOutsideOperatingHours):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, schedule.ErrUserScheduleConflict),
		errors.Is(err, schedule.ErrBookUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func publishBooked(view schedule.SessionView) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := queue.SessionBookedEvent{
		SessionID: view.ID,
		UserID:    view.User.ID,
		UserEmail: view.User.Email,
		Books:     view.Books,
		StartsAt:  view.StartTime.Format(time.RFC3339),
		EndsAt:    view.EndTime.Format(time.RFC3339),
		BookedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := queuepub.PublishSessionBooked(ctx, ev); err != nil {
		log.Printf("session-handler: publish booked event failed: %v", err)
	}
}
