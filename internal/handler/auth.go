package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticket-booking/internal/model"
	"github.com/eventix/ticket-booking/internal/repository"
	"github.com/eventix/ticket-booking/internal/utils"
)

// AuthHandler implements registration, login and identity lookup. It
// issues short-lived HS256 access tokens; there is no refresh flow.
type AuthHandler struct {
	Users        *repository.UserRepo
	JWTSecret    string
	AccessTTLMin int
	BcryptCost   int
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *repository.UserRepo, jwtSecret string, accessTTLMin, bcryptCost int) *AuthHandler {
	if users == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{
		Users:        users,
		JWTSecret:    jwtSecret,
		AccessTTLMin: accessTTLMin,
		BcryptCost:   bcryptCost,
	}
}

// Register handles POST /v1/auth/register. New accounts default to the
// CUSTOMER role; ORGANIZER may be requested at registration, ADMIN may
// not.
func (h *AuthHandler) Register(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Name == "" || body.Email == "" || len(body.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and a password of at least 8 characters are required"})
	}
	role := model.RoleCustomer
	if strings.EqualFold(body.Role, model.RoleOrganizer) {
		role = model.RoleOrganizer
	}

	hash, err := utils.HashPassword(body.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hash password"})
	}
	user := model.User{Name: body.Name, Email: body.Email, PasswordHash: hash, Role: role}
	if err := h.Users.Create(c.Request().Context(), &user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}

// Login handles POST /v1/auth/login and returns an access token on
// valid credentials. Invalid email and invalid password produce the
// same response, so the endpoint does not leak which emails exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))

	user, err := h.Users.GetByEmail(c.Request().Context(), body.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !utils.CheckPassword(user.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.Role, h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token.Token,
		"expires_at":   token.Exp,
		"role":         user.Role,
	})
}

// Me handles GET /v1/me and returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := loadActor(c, h.Users)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}
