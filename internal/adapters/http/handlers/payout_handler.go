package handlers

import (
	"errors"

	"mediconnect/internal/adapters/http/middleware"
	"mediconnect/internal/core/domain"
	"mediconnect/internal/core/services"
	"mediconnect/internal/pkg/pagination"
	"mediconnect/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PayoutHandler handles doctor payout endpoints
type PayoutHandler struct {
	payoutService *services.PayoutService
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(payoutService *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// Request creates a payout request for the caller's full credit balance
// @Summary Request payout
// @Description Request a payout of the calling doctor's entire credit balance. Only one pending request at a time.
// @Tags Payouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RequestInput true "Bank details"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /payouts [post]
func (h *PayoutHandler) Request(c *fiber.Ctx) error {
	doctorID := middleware.UserID(c)
	if doctorID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.RequestInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	payout, err := h.payoutService.Request(c.Context(), doctorID, &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBankDetailsEmpty):
			return response.BadRequest(c, "Bank details are required")
		case errors.Is(err, services.ErrNoCreditsToPayout):
			return response.BadRequest(c, "No credits to pay out")
		case errors.Is(err, services.ErrPayoutPending):
			return response.Conflict(c, "A payout request is already pending")
		case errors.Is(err, services.ErrDoctorNotFound):
			return response.NotFound(c, "Doctor not found")
		default:
			return response.InternalServerError(c, "Failed to request payout")
		}
	}

	return response.Created(c, "Payout requested", fiber.Map{"payout": payout})
}

// GetMine lists the caller's payout requests
// @Summary List my payouts
// @Description List the calling doctor's payout requests, newest first
// @Tags Payouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /payouts [get]
func (h *PayoutHandler) GetMine(c *fiber.Ctx) error {
	doctorID := middleware.UserID(c)
	if doctorID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	payouts, err := h.payoutService.GetMine(c.Context(), doctorID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list payouts")
	}

	return response.Success(c, "Payouts retrieved", fiber.Map{"payouts": payouts})
}

// List lists payout requests for admins
// @Summary List payouts (admin)
// @Description List payout requests, optionally filtered by status
// @Tags Payouts
// @Produce json
// @Security BearerAuth
// @Param status query string false "PROCESSING or PROCESSED"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/payouts [get]
func (h *PayoutHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := c.Query("status")

	payouts, total, err := h.payoutService.List(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list payouts")
	}

	return response.Success(c, "Payouts retrieved", pagination.NewResponse(payouts, params, total))
}

// Approve settles a pending payout
// @Summary Approve payout (admin)
// @Description Approve a pending payout, debiting the doctor's credits
// @Tags Payouts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payout ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/payouts/{id}/approve [post]
func (h *PayoutHandler) Approve(c *fiber.Ctx) error {
	adminID := middleware.UserID(c)
	if adminID == 0 {
		return response.Unauthorized(c, "Unauthorized")
	}

	payoutID, err := c.ParamsInt("id")
	if err != nil || payoutID < 1 {
		return response.BadRequest(c, "Invalid payout id")
	}

	payout, err := h.payoutService.Approve(c.Context(), uint(payoutID), adminID)
	if err != nil {
		var shortfall *domain.InsufficientCreditsError
		switch {
		case errors.Is(err, services.ErrPayoutNotFound):
			return response.NotFound(c, "Payout not found")
		case errors.Is(err, services.ErrPayoutNotPending):
			return response.Conflict(c, "Payout is not pending")
		case errors.As(err, &shortfall):
			return response.ErrorWithData(c, fiber.StatusConflict, "Doctor balance below payout amount", fiber.Map{
				"required":  shortfall.Required,
				"available": shortfall.Available,
			})
		default:
			return response.InternalServerError(c, "Failed to approve payout")
		}
	}

	return response.Success(c, "Payout approved", fiber.Map{"payout": payout})
}
