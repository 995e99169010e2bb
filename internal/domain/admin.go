package domain

import "time"

// Role enumerates admin privilege levels.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Admin is an operator who records customers.
type Admin struct {
	ID           string
	AdminID      string
	Name         string
	Phone        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary projects the admin onto its public fields.
func (a *Admin) Summary() *AdminSummary {
	return &AdminSummary{
		AdminID: a.AdminID,
		Name:    a.Name,
		Phone:   a.Phone,
		Role:    a.Role,
	}
}

// AdminSummary is the authenticated view of an admin. Bootstrap is set for the
// configured superadmin that has no stored record.
type AdminSummary struct {
	AdminID   string
	Name      string
	Phone     string
	Role      Role
	Bootstrap bool
}

// IsSuperadmin reports whether the admin sees and manages every record.
func (a *AdminSummary) IsSuperadmin() bool {
	return a != nil && a.Role == RoleSuperadmin
}
