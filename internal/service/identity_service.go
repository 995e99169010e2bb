package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/customer-ledger/internal/auth"
	"github.com/spec-kit/customer-ledger/internal/config"
	"github.com/spec-kit/customer-ledger/internal/domain"
	"github.com/spec-kit/customer-ledger/internal/events"
	"github.com/spec-kit/customer-ledger/internal/repository"
	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

const (
	adminIDPrefix     = "ADM-"
	adminIDSuffixLen  = 9
	adminIDMaxRetries = 5
	base36Alphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var adminPhonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// RegisterAdminInput carries a registration request.
type RegisterAdminInput struct {
	Name   string
	Phone  string
	Secret string
}

// IdentityService owns admin registration, login and credential resets.
type IdentityService struct {
	admins       repository.AdminRepository
	tokens       *auth.TokenManager
	bootstrap    *auth.BootstrapIdentity
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	bcryptCost   int
	promoteFirst bool
	timeout      time.Duration
	now          Clock
	newAdminID   func() (string, error)
}

// IdentityDependencies encapsulates collaborators of the identity service.
type IdentityDependencies struct {
	Admins     repository.AdminRepository
	Tokens     *auth.TokenManager
	Bootstrap  *auth.BootstrapIdentity
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
	// AdminIDs overrides the random admin id generator.
	AdminIDs func() (string, error)
}

// NewIdentityService builds the service. A configured bootstrap identity
// already holds the superadmin role, so registration order then grants nothing.
func NewIdentityService(cfg config.Config, deps IdentityDependencies) *IdentityService {
	s := &IdentityService{
		admins:       deps.Admins,
		tokens:       deps.Tokens,
		bootstrap:    deps.Bootstrap,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		promoteFirst: cfg.Auth.FirstAdminIsSuperadmin && deps.Bootstrap == nil,
		timeout:      cfg.Storage.Timeout(),
		now:          deps.Clock,
		newAdminID:   deps.AdminIDs,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = systemClock
	}
	if s.newAdminID == nil {
		s.newAdminID = generateAdminID
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return s
}

// Register creates an admin. The first stored admin becomes superadmin when
// promotion is enabled; the store applies that under its own lock.
func (s *IdentityService) Register(ctx context.Context, in RegisterAdminInput) (*domain.AdminSummary, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if name == "" || phone == "" || in.Secret == "" {
		return nil, apperrors.NewValidationError("name, phone and secret are required", nil)
	}
	if !adminPhonePattern.MatchString(phone) {
		return nil, apperrors.NewValidationError("phone must be a 10 digit number starting with 6-9",
			map[string]any{"phone": phone})
	}

	hash, err := auth.HashPassword(in.Secret, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now()
	for attempt := 0; attempt < adminIDMaxRetries; attempt++ {
		adminID, err := s.newAdminID()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if s.bootstrap.Is(adminID) {
			continue
		}
		admin := &domain.Admin{
			AdminID:      adminID,
			Name:         name,
			Phone:        phone,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = storageExec(ctx, s.timeout, func(ctx context.Context) error {
			return s.admins.Create(ctx, admin, s.promoteFirst)
		})
		switch {
		case err == nil:
			s.logger.Info("admin registered", zap.String("admin_id", admin.AdminID), zap.String("role", string(admin.Role)))
			s.publish(ctx, events.NewEvent(events.EventAdminRegistered, "", admin.AdminID, now,
				events.AdminRegisteredPayload{Role: admin.Role}))
			return admin.Summary(), nil
		case errors.Is(err, repository.ErrAdminIDTaken):
			s.logger.Warn("admin id collision, retrying", zap.String("admin_id", adminID), zap.Int("attempt", attempt+1))
			continue
		case errors.Is(err, repository.ErrPhoneTaken):
			return nil, apperrors.WithStatus(
				apperrors.NewConflict("phone already registered", map[string]any{"phone": phone}),
				http.StatusBadRequest)
		default:
			return nil, translateStorageError(err, "admin", nil)
		}
	}
	return nil, apperrors.NewInternalError(errors.New("could not allocate a unique admin id"))
}

// Authenticate checks credentials and issues an access token.
func (s *IdentityService) Authenticate(ctx context.Context, phone, secret string) (*domain.AdminSummary, *domain.Token, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || secret == "" {
		return nil, nil, apperrors.NewValidationError("phone and secret are required", nil)
	}

	if s.bootstrap.Matches(phone, secret) {
		summary := s.bootstrap.Summary()
		s.logger.Warn("bootstrap identity authenticated", zap.String("admin_id", summary.AdminID))
		return s.issue(summary)
	}

	admin, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Admin, error) {
		return s.admins.GetByPhone(ctx, phone)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, translateStorageError(err, "admin", nil)
	}
	if err := auth.ComparePassword(admin.PasswordHash, secret); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(admin.Summary())
}

// ResetPassword overwrites the stored credential without checking the old one.
func (s *IdentityService) ResetPassword(ctx context.Context, adminID, newSecret string) error {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" || newSecret == "" {
		return apperrors.NewValidationError("adminID and newSecret are required", nil)
	}
	if s.bootstrap.Is(adminID) {
		return apperrors.NewForbidden("bootstrap identity credentials are managed by configuration")
	}

	hash, err := auth.HashPassword(newSecret, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	err = storageExec(ctx, s.timeout, func(ctx context.Context) error {
		return s.admins.UpdatePassword(ctx, adminID, hash, s.now())
	})
	if err != nil {
		return translateStorageError(err, "admin", map[string]any{"adminID": adminID})
	}
	s.logger.Info("admin password reset", zap.String("admin_id", adminID))
	return nil
}

// Resolve loads the principal named by a token.
func (s *IdentityService) Resolve(ctx context.Context, adminID string, bootstrap bool) (*domain.AdminSummary, error) {
	if bootstrap {
		if s.bootstrap.Is(adminID) {
			return s.bootstrap.Summary(), nil
		}
		return nil, apperrors.NewNotFound("admin", nil)
	}
	admin, err := storageCall(ctx, s.timeout, func(ctx context.Context) (*domain.Admin, error) {
		return s.admins.GetByAdminID(ctx, adminID)
	})
	if err != nil {
		return nil, translateStorageError(err, "admin", nil)
	}
	return admin.Summary(), nil
}

// Exists reports whether adminID names a stored admin or the bootstrap identity.
func (s *IdentityService) Exists(ctx context.Context, adminID string) (bool, error) {
	_, err := s.Resolve(ctx, adminID, s.bootstrap.Is(adminID))
	if err == nil {
		return true, nil
	}
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return false, nil
	}
	return false, err
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *IdentityService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *IdentityService) issue(summary *domain.AdminSummary) (*domain.AdminSummary, *domain.Token, error) {
	token, err := s.tokens.GenerateToken(summary)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return summary, token, nil
}

func (s *IdentityService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func generateAdminID() (string, error) {
	var b strings.Builder
	b.WriteString(adminIDPrefix)
	alphabetSize := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < adminIDSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36Alphabet[n.Int64()])
	}
	return b.String(), nil
}
