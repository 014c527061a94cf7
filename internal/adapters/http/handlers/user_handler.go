package handlers

import (
	"errors"

	"mediconnect/internal/adapters/http/middleware"
	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/core/services"
	"mediconnect/internal/pkg/pagination"
	"mediconnect/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles profile and directory endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfile updates the caller's profile
// @Summary Update profile
// @Description Update name and, for doctors, specialty
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Profile fields"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.Context(), userID, &input)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, "Profile updated", fiber.Map{
		"user": user.ToResponse(),
	})
}

// ListDoctors returns the public doctor directory
// @Summary List doctors
// @Description List verified doctors available for booking
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /doctors [get]
func (h *UserHandler) ListDoctors(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	doctors, total, err := h.userService.ListDoctors(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list doctors")
	}

	responses := make([]*models.UserResponse, 0, len(doctors))
	for _, doctor := range doctors {
		responses = append(responses, doctor.ToResponse())
	}

	return response.Success(c, "Doctors retrieved", pagination.NewResponse(responses, params, total))
}

// GetDoctor returns one doctor's public profile
// @Summary Get doctor
// @Description Get a doctor's public profile
// @Tags Users
// @Produce json
// @Param id path int true "Doctor ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctors/{id} [get]
func (h *UserHandler) GetDoctor(c *fiber.Ctx) error {
	doctorID, err := c.ParamsInt("id")
	if err != nil || doctorID < 1 {
		return response.BadRequest(c, "Invalid doctor id")
	}

	doctor, err := h.userService.GetDoctor(c.Context(), uint(doctorID))
	if err != nil {
		if errors.Is(err, services.ErrDoctorNotFound) {
			return response.NotFound(c, "Doctor not found")
		}
		return response.InternalServerError(c, "Failed to get doctor")
	}

	return response.Success(c, "Doctor retrieved", fiber.Map{
		"doctor": doctor.ToResponse(),
	})
}

// GetLedger returns the caller's credit transaction history
// @Summary Get credit ledger
// @Description List the caller's credit transactions, newest first
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me/credits [get]
func (h *UserHandler) GetLedger(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)

	transactions, total, err := h.userService.GetLedger(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load credit history")
	}

	return response.Success(c, "Credit history retrieved", pagination.NewResponse(transactions, params, total))
}
