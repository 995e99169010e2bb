package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/customer-ledger/internal/domain"
)

// SubmitCustomerRequest payload for submit-customer.
type SubmitCustomerRequest struct {
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	ActingAdminID string  `json:"actingAdminID"`
	FollowUpDate  *string `json:"followUpDate"`
}

// PatchCustomerRequest payload for adjust-or-edit-customer. An action of
// increment or decrement adjusts visits; no action edits the given fields.
type PatchCustomerRequest struct {
	ID           string  `json:"id"`
	Action       string  `json:"action"`
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	FollowUpDate *string `json:"followUpDate"`
}

// IsAdjustment reports whether the request moves the visit counter.
func (r PatchCustomerRequest) IsAdjustment() bool {
	return strings.TrimSpace(r.Action) != ""
}

// RestoreCustomerRequest payload for restore-customer.
type RestoreCustomerRequest struct {
	ID string `json:"id"`
}

// CustomerResponse is the wire view of a customer.
type CustomerResponse struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Phone                 string    `json:"phone"`
	Address               string    `json:"address"`
	VisitCount            int       `json:"visitCount"`
	OwnerAdminID          string    `json:"ownerAdminID"`
	LastModifiedByAdminID *string   `json:"lastModifiedByAdminID"`
	FollowUpDate          *string   `json:"followUpDate"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// SubmitCustomerResponse adds consolidation flags to the record.
type SubmitCustomerResponse struct {
	Record      CustomerResponse `json:"record"`
	IsNewRecord bool             `json:"isNewRecord"`
	ShouldAlert bool             `json:"shouldAlert"`
}

// PatchCustomerResponse returns the updated record.
type PatchCustomerResponse struct {
	Record      CustomerResponse `json:"record"`
	ShouldAlert bool             `json:"shouldAlert"`
}

// RemoveCustomerResponse returns the removed record and the undo deadline.
type RemoveCustomerResponse struct {
	RemovedRecord CustomerResponse `json:"removedRecord"`
	UndoExpiresAt *time.Time       `json:"undoExpiresAt,omitempty"`
}

// NewCustomerResponse maps a domain customer.
func NewCustomerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:                    c.ID,
		Name:                  c.Name,
		Phone:                 c.Phone,
		Address:               c.Address,
		VisitCount:            c.VisitCount,
		OwnerAdminID:          c.OwnerAdminID,
		LastModifiedByAdminID: c.LastModifiedBy,
		FollowUpDate:          c.FollowUpDate,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

// NewCustomerListResponse maps a slice of customers preserving order.
func NewCustomerListResponse(customers []domain.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		out = append(out, NewCustomerResponse(&customers[i]))
	}
	return out
}
