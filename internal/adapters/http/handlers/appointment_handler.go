package handlers

import (
	"errors"

	"mediconnect/internal/adapters/http/middleware"
	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/core/domain"
	"mediconnect/internal/core/services"
	"mediconnect/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AppointmentHandler handles booking and appointment lifecycle endpoints
type AppointmentHandler struct {
	bookingService     *services.BookingService
	appointmentService *services.AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(bookingService *services.BookingService, appointmentService *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		bookingService:     bookingService,
		appointmentService: appointmentService,
	}
}

// Book books a concrete slot
// @Summary Book an appointment
// @Description Book a slot with a doctor. Credits are debited and locked in escrow atomically with the booking.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BookInput true "Slot to book"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 402 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	patientID := middleware.UserID(c)
	if patientID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.BookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.DoctorID == 0 {
		return response.BadRequest(c, "doctor_id is required")
	}

	appointment, err := h.bookingService.Book(c.Context(), patientID, &input)
	if err != nil {
		var shortfall *domain.InsufficientCreditsError
		switch {
		case errors.Is(err, services.ErrInvalidSlot):
			return response.BadRequest(c, "End time must be after start time")
		case errors.Is(err, services.ErrSlotInPast):
			return response.BadRequest(c, "Cannot book a slot in the past")
		case errors.Is(err, services.ErrDoctorNotFound):
			return response.NotFound(c, "Doctor not found")
		case errors.Is(err, services.ErrDoctorNotVerified):
			return response.Forbidden(c, "Doctor is not available for booking")
		case errors.Is(err, services.ErrSlotUnavailable):
			return response.Conflict(c, "Slot was just taken, pick another")
		case errors.As(err, &shortfall):
			return response.ErrorWithData(c, fiber.StatusPaymentRequired, "Not enough credits", fiber.Map{
				"required":  shortfall.Required,
				"available": shortfall.Available,
				"shortfall": shortfall.Shortfall(),
			})
		default:
			return response.InternalServerError(c, "Failed to book appointment")
		}
	}

	return response.Created(c, "Appointment booked", fiber.Map{
		"appointment": appointment.ToResponse(),
	})
}

// GetMine lists the caller's appointments
// @Summary List my appointments
// @Description List appointments where the caller is the patient or the doctor
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /appointments [get]
func (h *AppointmentHandler) GetMine(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}
	role := middleware.Role(c)

	appointments, err := h.appointmentService.GetMine(c.Context(), userID, role)
	if err != nil {
		return response.InternalServerError(c, "Failed to list appointments")
	}

	responses := make([]*models.AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		responses = append(responses, appointments[i].ToResponse())
	}

	return response.Success(c, "Appointments retrieved", fiber.Map{
		"appointments": responses,
	})
}

// GetByID returns one appointment
// @Summary Get appointment
// @Description Get an appointment the caller is a party to
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) GetByID(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}
	role := middleware.Role(c)

	appointmentID, err := c.ParamsInt("id")
	if err != nil || appointmentID < 1 {
		return response.BadRequest(c, "Invalid appointment id")
	}

	appointment, err := h.appointmentService.GetByID(c.Context(), uint(appointmentID), userID, role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrNotAppointmentParty):
			return response.Forbidden(c, "Not your appointment")
		default:
			return response.InternalServerError(c, "Failed to get appointment")
		}
	}

	return response.Success(c, "Appointment retrieved", fiber.Map{
		"appointment": appointment.ToResponse(),
	})
}

// Cancel cancels an appointment
// @Summary Cancel appointment
// @Description Cancel a scheduled appointment. Escrowed credits are refunded to the patient. Cancelling twice is a no-op.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	appointmentID, err := c.ParamsInt("id")
	if err != nil || appointmentID < 1 {
		return response.BadRequest(c, "Invalid appointment id")
	}

	appointment, err := h.appointmentService.Cancel(c.Context(), uint(appointmentID), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrNotAppointmentParty):
			return response.Forbidden(c, "Not your appointment")
		case errors.Is(err, services.ErrAppointmentCompleted):
			return response.Conflict(c, "Completed appointments cannot be cancelled")
		default:
			return response.InternalServerError(c, "Failed to cancel appointment")
		}
	}

	return response.Success(c, "Appointment cancelled", fiber.Map{
		"appointment": appointment.ToResponse(),
	})
}

// Complete completes an appointment and releases escrow
// @Summary Complete appointment
// @Description Mark an ended appointment as completed. Escrowed credits are released to the doctor.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	appointmentID, err := c.ParamsInt("id")
	if err != nil || appointmentID < 1 {
		return response.BadRequest(c, "Invalid appointment id")
	}

	appointment, err := h.appointmentService.Complete(c.Context(), uint(appointmentID), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrNotDoctorOfAppt):
			return response.Forbidden(c, "Only the appointment's doctor can complete it")
		case errors.Is(err, services.ErrNotScheduled):
			return response.Conflict(c, "Appointment is not in a completable state")
		case errors.Is(err, services.ErrNotYetEnded):
			return response.Conflict(c, "Appointment has not ended yet")
		default:
			return response.InternalServerError(c, "Failed to complete appointment")
		}
	}

	return response.Success(c, "Appointment completed", fiber.Map{
		"appointment": appointment.ToResponse(),
	})
}

// Join returns the video session for an appointment
// @Summary Join video session
// @Description Get the video session id for a scheduled appointment, issuing one if missing
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/join [post]
func (h *AppointmentHandler) Join(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	appointmentID, err := c.ParamsInt("id")
	if err != nil || appointmentID < 1 {
		return response.BadRequest(c, "Invalid appointment id")
	}

	sessionID, err := h.appointmentService.Join(c.Context(), uint(appointmentID), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrNotAppointmentParty):
			return response.Forbidden(c, "Not your appointment")
		case errors.Is(err, services.ErrNotScheduled):
			return response.Conflict(c, "Appointment is not joinable")
		default:
			return response.InternalServerError(c, "Failed to join appointment")
		}
	}

	return response.Success(c, "Video session ready", fiber.Map{
		"video_session_id": sessionID,
	})
}
