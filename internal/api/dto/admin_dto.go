package dto

import (
	"time"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

// RegisterAdminRequest payload for new admins.
type RegisterAdminRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Secret string `json:"secret"`
}

// LoginRequest payload for authenticate-admin.
type LoginRequest struct {
	Phone  string `json:"phone"`
	Secret string `json:"secret"`
}

// ResetPasswordRequest payload for reset-admin-password.
type ResetPasswordRequest struct {
	AdminID   string `json:"adminID"`
	NewSecret string `json:"newSecret"`
}

// RegisterAdminResponse returns the generated identity.
type RegisterAdminResponse struct {
	AdminID string      `json:"adminID"`
	Role    domain.Role `json:"role"`
}

// AdminSummaryResponse is the public view of an authenticated admin.
type AdminSummaryResponse struct {
	AdminID   string      `json:"adminID"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Role      domain.Role `json:"role"`
	Bootstrap bool        `json:"bootstrap,omitempty"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResponse bundles the admin and its token.
type LoginResponse struct {
	Admin AdminSummaryResponse `json:"admin"`
	Auth  AuthResponse         `json:"auth"`
}

// AdminWithCountResponse is one row of the admin listing.
type AdminWithCountResponse struct {
	AdminID       string      `json:"adminID"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Role          domain.Role `json:"role"`
	CreatedAt     time.Time   `json:"createdAt"`
	CustomerCount int         `json:"customerCount"`
}

// CustomerCountResponse answers customer-count queries.
type CustomerCountResponse struct {
	AdminID       string `json:"adminID"`
	CustomerCount int    `json:"customerCount"`
}

// NewAdminSummaryResponse maps the domain summary.
func NewAdminSummaryResponse(a *domain.AdminSummary) AdminSummaryResponse {
	return AdminSummaryResponse{AdminID: a.AdminID, Name: a.Name, Phone: a.Phone, Role: a.Role, Bootstrap: a.Bootstrap}
}
