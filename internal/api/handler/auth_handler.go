package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/personar/profile-service/internal/core/ports"
)

// AuthHandler handles enrollment and login.
type AuthHandler struct {
	service ports.ProfileService
}

func NewAuthHandler(service ports.ProfileService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Signup enrolls a new user with a password and three face embeddings.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Profile, credential and face embeddings"
// @Success      201   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.service.Signup(c.Request().Context(), toSignupInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// SignupExternal enrolls a user vouched for by the external identity provider.
//
// @Summary      Sign up with an external identity
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      externalSignupRequest  true  "Identity assertion, profile and face embeddings"
// @Success      201   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /signup/external [post]
func (h *AuthHandler) SignupExternal(c echo.Context) error {
	var req externalSignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.service.SignupExternal(c.Request().Context(), toExternalSignupInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// Login exchanges an email and password for a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	token, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bearer(token))
}

// LoginExternal exchanges an identity assertion for a bearer token.
//
// @Summary      Login with an external identity
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      externalLoginRequest  true  "Identity assertion"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /login/external [post]
func (h *AuthHandler) LoginExternal(c echo.Context) error {
	var req externalLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	token, err := h.service.LoginExternal(c.Request().Context(), req.Assertion)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bearer(token))
}
