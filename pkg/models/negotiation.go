package models

import (
	"time"

	"github.com/jairodriguez/autonomica/pkg/protocol"
)

// NegotiationStatus represents the state of a resource dispute.
type NegotiationStatus string

const (
	// NegotiationOpen indicates the dispute is unresolved.
	NegotiationOpen NegotiationStatus = "open"
	// NegotiationResolved indicates the dispute ended with a resolution.
	NegotiationResolved NegotiationStatus = "resolved"
	// NegotiationFailed indicates the dispute ended without a resolution.
	NegotiationFailed NegotiationStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s NegotiationStatus) Valid() bool {
	switch s {
	case NegotiationOpen, NegotiationResolved, NegotiationFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s NegotiationStatus) Terminal() bool {
	return s == NegotiationResolved || s == NegotiationFailed
}

// NegotiationState tracks one dispute over a shared resource from creation
// to resolution or failure.
type NegotiationState struct {
	// ID is the unique identifier for this negotiation.
	ID string `json:"id"`
	// ResourceID is the contested ledger entry.
	ResourceID string `json:"resource_id"`
	// InitiatorID is the worker that raised the dispute.
	InitiatorID string `json:"initiator_id"`
	// Parties lists all involved worker IDs, initiator included.
	Parties []string `json:"parties"`
	// History is the ordered message exchange for this dispute.
	History []protocol.Message `json:"history,omitempty"`
	// Status is the current state of the negotiation.
	Status NegotiationStatus `json:"status"`
	// Resolution describes the outcome when status is resolved.
	Resolution string `json:"resolution,omitempty"`
	// FailureReason describes why the negotiation failed, if it did.
	FailureReason string `json:"failure_reason,omitempty"`
	// CreatedAt is when the dispute was opened.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the negotiation last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
