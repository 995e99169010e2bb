package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/customer-ledger/internal/api/dto"
	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/service"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

// CustomersHandler exposes the consolidation engine.
type CustomersHandler struct {
	service *service.CustomerService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(customerService *service.CustomerService) *CustomersHandler {
	return &CustomersHandler{service: customerService}
}

// List GET /customers.
func (h *CustomersHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	customers, err := h.service.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCustomerListResponse(customers)})
}

// Submit POST /customers.
func (h *CustomersHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.Submit(c.UserContext(), principal, service.SubmitCustomerInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		ActingAdminID: req.ActingAdminID,
		FollowUpDate:  req.FollowUpDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.SubmitCustomerResponse{
		Record:      dto.NewCustomerResponse(result.Customer),
		IsNewRecord: result.IsNewRecord,
		ShouldAlert: result.ShouldAlert,
	}})
}

// Patch PATCH /customers adjusts visits or edits fields.
func (h *CustomersHandler) Patch(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PatchCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ID) == "" {
		return apperrors.NewValidationError("id is required", nil)
	}

	if req.IsAdjustment() {
		direction := domain.VisitDirection(strings.ToLower(strings.TrimSpace(req.Action)))
		result, err := h.service.AdjustVisit(c.UserContext(), principal, req.ID, direction)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.PatchCustomerResponse{
			Record:      dto.NewCustomerResponse(result.Customer),
			ShouldAlert: result.ShouldAlert,
		}})
	}

	updated, err := h.service.Edit(c.UserContext(), principal, req.ID, service.EditCustomerInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
		FollowUpDate: req.FollowUpDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PatchCustomerResponse{Record: dto.NewCustomerResponse(updated)}})
}

// Remove DELETE /customers?id=.
func (h *CustomersHandler) Remove(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id := c.Query("id")
	if id == "" && len(c.Body()) > 0 {
		var req dto.RestoreCustomerRequest
		if err := c.BodyParser(&req); err == nil {
			id = req.ID
		}
	}
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("id is required", nil)
	}

	result, err := h.service.Remove(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RemoveCustomerResponse{
		RemovedRecord: dto.NewCustomerResponse(result.Customer),
		UndoExpiresAt: result.UndoExpiresAt,
	}})
}

// Restore POST /customers/restore.
func (h *CustomersHandler) Restore(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RestoreCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	restored, err := h.service.Restore(c.UserContext(), principal, req.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"record": dto.NewCustomerResponse(restored)}})
}
