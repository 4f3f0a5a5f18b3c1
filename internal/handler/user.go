package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reading-room/internal/repository"
	"github.com/iliyamo/library-reading-room/internal/schedule"
)

// UserHandler serves account management endpoints: email change for the
// owner and user administration for librarians.
type UserHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(u *repository.UserRepo, t *repository.TokenRepo) *UserHandler {
	return &UserHandler{Users: u, Tokens: t}
}

var emailPattern = regexp.MustCompile(`^\w+@\w+\.[a-zA-Z]+$`)

type emailChangeReq struct {
	NewEmail string `json:"new_email"`
}

// UpdateEmail changes the authenticated user's address. The new address
// must match the accepted email shape and be free.
func (h *UserHandler) UpdateEmail(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req emailChangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	newEmail := strings.ToLower(strings.TrimSpace(req.NewEmail))
	if !emailPattern.MatchString(newEmail) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email format"})
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Users.UpdateEmail(ctx, u.Email, newEmail); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, schedule.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	// Existing sessions were issued against the old identity; force a
	// fresh login everywhere.
	_ = h.Tokens.RevokeAllForUser(ctx, u.ID)
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: newEmail, Role: u.Role})
}

// List returns every registered user. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	}
	return c.JSON(http.StatusOK, out)
}

// FindByEmail looks a user up by ?email=. Admin only.
func (h *UserHandler) FindByEmail(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	u, err := h.Users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}
