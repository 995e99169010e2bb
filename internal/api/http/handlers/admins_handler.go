package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/customer-ledger/internal/api/dto"
	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/service"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

// AdminsHandler exposes admin identity and oversight endpoints.
type AdminsHandler struct {
	identity *service.IdentityService
	reports  *service.ReportService
}

// NewAdminsHandler constructs handler.
func NewAdminsHandler(identity *service.IdentityService, reports *service.ReportService) *AdminsHandler {
	return &AdminsHandler{identity: identity, reports: reports}
}

// Register handles POST /auth/admins/register.
func (h *AdminsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	admin, err := h.identity.Register(c.UserContext(), service.RegisterAdminInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Secret: req.Secret,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.RegisterAdminResponse{AdminID: admin.AdminID, Role: admin.Role},
	})
}

// Login handles POST /auth/admins/login.
func (h *AdminsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	admin, token, err := h.identity.Authenticate(c.UserContext(), req.Phone, req.Secret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Admin: dto.NewAdminSummaryResponse(admin),
		Auth:  dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt},
	}})
}

// ResetPassword handles POST /auth/admins/reset-password.
func (h *AdminsHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.identity.ResetPassword(c.UserContext(), req.AdminID, req.NewSecret); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ack": true}})
}

// List handles GET /admins.
func (h *AdminsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	rows, err := h.reports.ListAdminsWithCounts(c.UserContext(), principal)
	if err != nil {
		return err
	}

	data := make([]dto.AdminWithCountResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, dto.AdminWithCountResponse{
			AdminID:       row.Admin.AdminID,
			Name:          row.Admin.Name,
			Phone:         row.Admin.Phone,
			Role:          row.Admin.Role,
			CreatedAt:     row.Admin.CreatedAt,
			CustomerCount: row.CustomerCount,
		})
	}
	return c.JSON(fiber.Map{"data": data})
}

// CustomerCount handles GET /admins/:adminID/customer-count.
func (h *AdminsHandler) CustomerCount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	adminID := c.Params("adminID")
	count, err := h.reports.CustomerCountByAdmin(c.UserContext(), principal, adminID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CustomerCountResponse{AdminID: adminID, CustomerCount: count}})
}
