package domain

import "time"

// RequestStatus is the lifecycle state of a redeem request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// RedeemRequest is a user-submitted request for a service account awaiting an
// admin decision. Once resolved the record is immutable.
type RedeemRequest struct {
	ID         int64
	UserID     int64
	Username   string
	Details    string
	Status     RequestStatus
	Reason     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
