package auth

import (
	"crypto/subtle"

	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
)

// BootstrapIdentity is the configured superadmin that has no stored record.
// A zero value never matches.
type BootstrapIdentity struct {
	phone   string
	secret  string
	adminID string
	name    string
}

// NewBootstrapIdentity returns nil when the configuration leaves it disabled.
func NewBootstrapIdentity(cfg config.BootstrapIdentityConfig) *BootstrapIdentity {
	if !cfg.Enabled() {
		return nil
	}
	return &BootstrapIdentity{phone: cfg.Phone, secret: cfg.Secret, adminID: cfg.AdminID, name: cfg.Name}
}

// Matches compares both credentials in constant time.
func (b *BootstrapIdentity) Matches(phone, secret string) bool {
	if b == nil {
		return false
	}
	phoneOK := subtle.ConstantTimeCompare([]byte(phone), []byte(b.phone))
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(b.secret))
	return phoneOK&secretOK == 1
}

// Is reports whether adminID names the bootstrap identity.
func (b *BootstrapIdentity) Is(adminID string) bool {
	return b != nil && adminID == b.adminID
}

// Summary is the principal the bootstrap identity authenticates as.
func (b *BootstrapIdentity) Summary() *domain.AdminSummary {
	if b == nil {
		return nil
	}
	return &domain.AdminSummary{
		AdminID:   b.adminID,
		Name:      b.name,
		Phone:     b.phone,
		Role:      domain.RoleSuperadmin,
		Bootstrap: true,
	}
}
