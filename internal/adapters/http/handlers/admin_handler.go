package handlers

import (
	"errors"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/core/domain"
	"mediconnect/internal/core/services"
	"mediconnect/internal/pkg/pagination"
	"mediconnect/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles arbitration and platform management endpoints
type AdminHandler struct {
	adminService    *services.AdminService
	userService     *services.UserService
	settingsService *services.SettingsService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService, userService *services.UserService, settingsService *services.SettingsService) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		userService:     userService,
		settingsService: settingsService,
	}
}

// Dashboard returns platform counters
// @Summary Admin dashboard
// @Description Platform counters including escrowed credits and ledger drift
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	dashboard, err := h.adminService.Dashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard")
	}
	return response.Success(c, "Dashboard retrieved", dashboard)
}

// ListEscrowed lists appointments still holding locked credits
// @Summary List escrowed appointments
// @Description List appointments with credits locked and not yet released or refunded
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/appointments/escrowed [get]
func (h *AdminHandler) ListEscrowed(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	appointments, total, err := h.adminService.ListEscrowed(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list escrowed appointments")
	}

	responses := make([]*models.AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		responses = append(responses, appointments[i].ToResponse())
	}

	return response.Success(c, "Escrowed appointments retrieved", pagination.NewResponse(responses, params, total))
}

// Release force-releases escrowed credits to the doctor
// @Summary Release escrow (admin)
// @Description Release an appointment's locked credits to the doctor with a resolution note
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Param body body services.ResolveInput true "Resolution note"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/appointments/{id}/release [post]
func (h *AdminHandler) Release(c *fiber.Ctx) error {
	appointmentID, err := c.ParamsInt("id")
	if err != nil || appointmentID < 1 {
		return response.BadRequest(c, "Invalid appointment id")
	}

	var input services.ResolveInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Note == "" {
		return response.BadRequest(c, "Resolution note is required")
	}

	appointment, err := h.adminService.Release(c.Context(), uint(appointmentID), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrReleaseCancelled):
			return response.Conflict(c, "Cancelled appointments cannot be released")
		default:
			return response.InternalServerError(c, "Failed to release credits")
		}
	}

	return response.Success(c, "Credits released to doctor", fiber.Map{
		"appointment": appointment.ToResponse(),
	})
}

// Refund force-refunds escrowed credits to the patient
// @Summary Refund escrow (admin)
// @Description Refund an appointment's locked credits to the patient and cancel it, with a resolution note
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Param body body services.ResolveInput true "Resolution note"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/appointments/{id}/refund [post]
func (h *AdminHandler) Refund(c *fiber.Ctx) error {
	appointmentID, err := c.ParamsInt("id")
	if err != nil || appointmentID < 1 {
		return response.BadRequest(c, "Invalid appointment id")
	}

	var input services.ResolveInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Note == "" {
		return response.BadRequest(c, "Resolution note is required")
	}

	appointment, err := h.adminService.Refund(c.Context(), uint(appointmentID), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrAlreadyReleased):
			return response.Conflict(c, "Credits were already released, refund is not possible")
		default:
			return response.InternalServerError(c, "Failed to refund credits")
		}
	}

	return response.Success(c, "Credits refunded to patient", fiber.Map{
		"appointment": appointment.ToResponse(),
	})
}

// VerifyDoctorRequest represents a verification toggle
type VerifyDoctorRequest struct {
	Verified bool `json:"verified"`
}

// VerifyDoctor toggles a doctor's verification
// @Summary Verify doctor (admin)
// @Description Set a doctor's verification flag. Unverified doctors are not bookable.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Doctor ID"
// @Param body body VerifyDoctorRequest true "Verification flag"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/doctors/{id}/verify [post]
func (h *AdminHandler) VerifyDoctor(c *fiber.Ctx) error {
	doctorID, err := c.ParamsInt("id")
	if err != nil || doctorID < 1 {
		return response.BadRequest(c, "Invalid doctor id")
	}

	var req VerifyDoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	doctor, err := h.adminService.VerifyDoctor(c.Context(), uint(doctorID), req.Verified)
	if err != nil {
		if errors.Is(err, services.ErrDoctorNotFound) {
			return response.NotFound(c, "Doctor not found")
		}
		return response.InternalServerError(c, "Failed to update doctor")
	}

	return response.Success(c, "Doctor verification updated", fiber.Map{
		"doctor": doctor.ToResponse(),
	})
}

// AdjustCredits grants or revokes a user's credits
// @Summary Adjust credits (admin)
// @Description Grant or revoke credits through the ledger. Negative amounts are bounded by the balance.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.AdjustCreditsInput true "User and signed amount"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/credits [post]
func (h *AdminHandler) AdjustCredits(c *fiber.Ctx) error {
	var input services.AdjustCreditsInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.UserID == 0 {
		return response.BadRequest(c, "user_id is required")
	}

	user, err := h.adminService.AdjustCredits(c.Context(), &input)
	if err != nil {
		var shortfall *domain.InsufficientCreditsError
		switch {
		case errors.Is(err, services.ErrZeroAdjustment):
			return response.BadRequest(c, "Amount must be non-zero")
		case errors.Is(err, services.ErrUserNotFoundAdmin):
			return response.NotFound(c, "User not found")
		case errors.As(err, &shortfall):
			return response.ErrorWithData(c, fiber.StatusConflict, "User balance below revocation amount", fiber.Map{
				"required":  shortfall.Required,
				"available": shortfall.Available,
			})
		default:
			return response.InternalServerError(c, "Failed to adjust credits")
		}
	}

	return response.Success(c, "Credits adjusted", fiber.Map{
		"user": user.ToResponse(),
	})
}

// ListUsers lists users by role
// @Summary List users (admin)
// @Description List users, optionally filtered by role
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "PATIENT, DOCTOR or ADMIN"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	role := c.Query("role")

	users, total, err := h.userService.ListUsers(c.Context(), role, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	responses := make([]*models.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, user.ToResponse())
	}

	return response.Success(c, "Users retrieved", pagination.NewResponse(responses, params, total))
}

// SetUserActiveRequest represents a suspension toggle
type SetUserActiveRequest struct {
	Active bool `json:"active"`
}

// SetUserActive suspends or reinstates an account
// @Summary Suspend or reinstate user (admin)
// @Description Toggle a user's active flag. Suspended users cannot log in.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetUserActiveRequest true "Active flag"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/active [post]
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID < 1 {
		return response.BadRequest(c, "Invalid user id")
	}

	var req SetUserActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.SetActive(c.Context(), uint(userID), req.Active)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to update user")
	}

	return response.Success(c, "User updated", fiber.Map{
		"user": user.ToResponse(),
	})
}

// GetSettings lists platform settings
// @Summary Get platform settings (admin)
// @Description List the billing parameters of the platform
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settingsService.GetAll(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load settings")
	}
	return response.Success(c, "Settings retrieved", fiber.Map{"settings": settings})
}

// UpdateSetting updates one platform setting
// @Summary Update platform setting (admin)
// @Description Update a billing parameter. Existing appointments keep the cost locked at booking time.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateSettingInput true "Setting key and value"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/settings [put]
func (h *AdminHandler) UpdateSetting(c *fiber.Ctx) error {
	var input services.UpdateSettingInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.settingsService.Update(c.Context(), &input); err != nil {
		switch {
		case errors.Is(err, services.ErrSettingNotFound):
			return response.NotFound(c, "Unknown setting key")
		case errors.Is(err, services.ErrInvalidSetting):
			return response.BadRequest(c, "Invalid setting value")
		default:
			return response.InternalServerError(c, "Failed to update setting")
		}
	}

	return response.Success(c, "Setting updated", nil)
}
