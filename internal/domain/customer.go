package domain

import "time"

// VisitDirection selects how a visit adjustment moves the counter.
type VisitDirection string

const (
	VisitIncrement VisitDirection = "increment"
	VisitDecrement VisitDirection = "decrement"
)

// Delta returns the counter change for the direction, or 0 if unknown.
func (d VisitDirection) Delta() int {
	switch d {
	case VisitIncrement:
		return 1
	case VisitDecrement:
		return -1
	default:
		return 0
	}
}

// Customer is a consolidated contact record. NameKey and PhoneKey hold the
// business key computed by the active matching strategy; storage keeps at most
// one record per key pair.
type Customer struct {
	ID             string
	Name           string
	Phone          string
	Address        string
	NameKey        string
	PhoneKey       string
	VisitCount     int
	OwnerAdminID   string
	LastModifiedBy *string
	FollowUpDate   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
