package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
)

// ProfileHandler handles profile reads, updates and lookups.
type ProfileHandler struct {
	service ports.ProfileService
}

func NewProfileHandler(service ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Me handles GET /users/me.
//
// @Summary      Get own profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	email, err := ctxEmail(c)
	if err != nil {
		return err
	}

	profile, err := h.service.Me(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// UpdateMe handles PUT /users/me. Only the fields present in the body change.
//
// @Summary      Update own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /users/me [put]
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	email, err := ctxEmail(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.service.UpdateProfile(c.Request().Context(), email, toProfilePatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// ReEnroll handles PUT /users/me/face-vectors.
//
// @Summary      Replace own face embeddings
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      faceVectorsRequest  true  "Three 128-dimension embeddings"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /users/me/face-vectors [put]
func (h *ProfileHandler) ReEnroll(c echo.Context) error {
	email, err := ctxEmail(c)
	if err != nil {
		return err
	}

	var req faceVectorsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.service.ReEnroll(c.Request().Context(), email, toEmbeddingSet(req.FaceVectors))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// ByHandle handles GET /users/:handle.
//
// @Summary      Get a public profile by handle
// @Tags         users
// @Produce      json
// @Param        handle  path      string  true  "Profile handle"
// @Success      200     {object}  profileResponse
// @Failure      404     {object}  errorResponse
// @Router       /users/{handle} [get]
func (h *ProfileHandler) ByHandle(c echo.Context) error {
	profile, err := h.service.LookupByHandle(c.Request().Context(), c.Param("handle"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// ByVector handles POST /users/find-by-vector.
//
// @Summary      Find the profile closest to a face embedding
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      vectorQueryRequest  true  "128-dimension embedding"
// @Success      200   {object}  vectorMatchResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /users/find-by-vector [post]
func (h *ProfileHandler) ByVector(c echo.Context) error {
	var req vectorQueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	match, err := h.service.LookupByVector(c.Request().Context(), domain.Vector(req.Vector))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toVectorMatchResponse(match))
}
