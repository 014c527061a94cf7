package handlers

import (
	"errors"
	"time"

	"mediconnect/internal/adapters/http/middleware"
	"mediconnect/internal/core/services"
	"mediconnect/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AvailabilityHandler handles availability windows and slot listings
type AvailabilityHandler struct {
	availabilityService *services.AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availabilityService *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

// GetSlots lists bookable slots for a doctor
// @Summary Get bookable slots
// @Description Compute concrete bookable slots for a doctor over the coming days, grouped by day
// @Tags Availability
// @Produce json
// @Param id path int true "Doctor ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctors/{id}/slots [get]
func (h *AvailabilityHandler) GetSlots(c *fiber.Ctx) error {
	doctorID, err := c.ParamsInt("id")
	if err != nil || doctorID < 1 {
		return response.BadRequest(c, "Invalid doctor id")
	}

	days, err := h.availabilityService.GetAvailableSlots(c.Context(), uint(doctorID), time.Now())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDoctorNotFound):
			return response.NotFound(c, "Doctor not found")
		case errors.Is(err, services.ErrNoAvailability):
			// Distinct from a fully booked horizon, which returns empty
			// day buckets in a success envelope.
			return response.NotFound(c, "Doctor has no availability windows")
		default:
			return response.InternalServerError(c, "Failed to compute slots")
		}
	}

	return response.Success(c, "Slots retrieved", fiber.Map{"days": days})
}

// CreateWindow creates a recurring availability window
// @Summary Create availability window
// @Description Create a daily recurring window. An end before the start wraps past midnight.
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateWindowInput true "Window times (HH:MM)"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /availability [post]
func (h *AvailabilityHandler) CreateWindow(c *fiber.Ctx) error {
	doctorID := middleware.UserID(c)
	if doctorID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateWindowInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.StartTime == "" || input.EndTime == "" {
		return response.BadRequest(c, "start_time and end_time are required")
	}

	window, err := h.availabilityService.CreateWindow(c.Context(), doctorID, &input)
	if err != nil {
		if errors.Is(err, services.ErrZeroLengthWindow) {
			return response.BadRequest(c, "Window start and end must differ")
		}
		return response.BadRequest(c, err.Error())
	}

	return response.Created(c, "Availability window created", fiber.Map{"window": window})
}

// ListWindows lists the caller's availability windows
// @Summary List availability windows
// @Description List all recurring windows owned by the calling doctor
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /availability [get]
func (h *AvailabilityHandler) ListWindows(c *fiber.Ctx) error {
	doctorID := middleware.UserID(c)
	if doctorID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	windows, err := h.availabilityService.ListWindows(c.Context(), doctorID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list windows")
	}

	return response.Success(c, "Windows retrieved", fiber.Map{"windows": windows})
}

// DeleteWindow deletes an owned availability window
// @Summary Delete availability window
// @Description Delete a recurring window owned by the calling doctor
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param id path int true "Window ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) DeleteWindow(c *fiber.Ctx) error {
	doctorID := middleware.UserID(c)
	if doctorID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	windowID, err := c.ParamsInt("id")
	if err != nil || windowID < 1 {
		return response.BadRequest(c, "Invalid window id")
	}

	if err := h.availabilityService.DeleteWindow(c.Context(), doctorID, uint(windowID)); err != nil {
		switch {
		case errors.Is(err, services.ErrWindowNotFound):
			return response.NotFound(c, "Window not found")
		case errors.Is(err, services.ErrNotWindowOwner):
			return response.Forbidden(c, "Not your availability window")
		default:
			return response.InternalServerError(c, "Failed to delete window")
		}
	}

	return response.Success(c, "Window deleted", nil)
}

// SetWindowStatusRequest represents a window status toggle
type SetWindowStatusRequest struct {
	Status string `json:"status"`
}

// SetWindowStatus enables or disables a window
// @Summary Toggle availability window
// @Description Set a window to AVAILABLE or DISABLED without deleting it
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Window ID"
// @Param body body SetWindowStatusRequest true "New status"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /availability/{id}/status [patch]
func (h *AvailabilityHandler) SetWindowStatus(c *fiber.Ctx) error {
	doctorID := middleware.UserID(c)
	if doctorID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	windowID, err := c.ParamsInt("id")
	if err != nil || windowID < 1 {
		return response.BadRequest(c, "Invalid window id")
	}

	var req SetWindowStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.availabilityService.SetWindowStatus(c.Context(), doctorID, uint(windowID), req.Status); err != nil {
		switch {
		case errors.Is(err, services.ErrWindowNotFound):
			return response.NotFound(c, "Window not found")
		case errors.Is(err, services.ErrNotWindowOwner):
			return response.Forbidden(c, "Not your availability window")
		default:
			return response.BadRequest(c, err.Error())
		}
	}

	return response.Success(c, "Window status updated", nil)
}
