// Package protocol defines the message envelope exchanged between the
// orchestrator and workers. Every message is a header plus a payload whose
// concrete type is determined by the header's kind, drawn from a closed set.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownKind is returned when decoding a message whose kind is not in
// the closed set.
var ErrUnknownKind = errors.New("unknown message kind")

// Kind identifies the payload type carried by a message.
type Kind string

const (
	// KindTaskAssignment assigns a task to a worker.
	KindTaskAssignment Kind = "task_assignment"
	// KindTaskDecompositionRequest asks a worker to split a task into subtasks.
	KindTaskDecompositionRequest Kind = "task_decomposition_request"
	// KindTaskDecompositionResponse returns the proposed subtasks.
	KindTaskDecompositionResponse Kind = "task_decomposition_response"
	// KindStatusUpdate reports task progress or completion.
	KindStatusUpdate Kind = "status_update"
	// KindFeedback carries a quality rating for completed work.
	KindFeedback Kind = "feedback"
	// KindDataRequest asks another party for a named value.
	KindDataRequest Kind = "data_request"
	// KindDataResponse answers a data request.
	KindDataResponse Kind = "data_response"
	// KindConflictDetected reports contention over a shared resource.
	KindConflictDetected Kind = "conflict_detected"
	// KindNegotiationRequest opens or advances a resource negotiation.
	KindNegotiationRequest Kind = "negotiation_request"
	// KindNegotiationResponse accepts or counters a negotiation proposal.
	KindNegotiationResponse Kind = "negotiation_response"
	// KindResolutionFound announces the outcome of a negotiation.
	KindResolutionFound Kind = "resolution_found"
)

// Valid returns true if the kind is in the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindTaskAssignment, KindTaskDecompositionRequest, KindTaskDecompositionResponse,
		KindStatusUpdate, KindFeedback, KindDataRequest, KindDataResponse,
		KindConflictDetected, KindNegotiationRequest, KindNegotiationResponse,
		KindResolutionFound:
		return true
	default:
		return false
	}
}

// Header carries identity and routing for a message.
type Header struct {
	// MessageID is the unique identifier for this message.
	MessageID string `json:"message_id"`
	// SenderID identifies the sending party.
	SenderID string `json:"sender_id"`
	// RecipientID identifies the receiving party.
	RecipientID string `json:"recipient_id"`
	// Kind determines the concrete payload type.
	Kind Kind `json:"kind"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// Payload is the kind-specific body of a message. It is a sealed interface:
// exactly one type in this package implements it per kind, so the header's
// kind can never disagree with the payload's type.
type Payload interface {
	kind() Kind
}

// Message is the unit exchanged between workers and the orchestrator.
type Message struct {
	Header  Header
	Payload Payload
}

// New builds a message around the given payload. The header kind is derived
// from the payload type.
func New(senderID, recipientID string, p Payload) Message {
	return Message{
		Header: Header{
			MessageID:   uuid.New().String()[:8],
			SenderID:    senderID,
			RecipientID: recipientID,
			Kind:        p.kind(),
			Timestamp:   time.Now(),
		},
		Payload: p,
	}
}

// envelope is the wire shape of a message.
type envelope struct {
	Header  Header          `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the message as {"header": ..., "payload": ...}.
func (m Message) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(envelope{Header: m.Header, Payload: raw})
}

// UnmarshalJSON decodes the header first, then dispatches on its kind to
// decode the payload into the matching concrete type.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	payload, err := decodePayload(env.Header.Kind, env.Payload)
	if err != nil {
		return err
	}

	m.Header = env.Header
	m.Payload = payload
	return nil
}

// decodePayload maps a kind to its concrete payload type. The switch covers
// every kind in the closed set; anything else is ErrUnknownKind.
func decodePayload(k Kind, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch k {
	case KindTaskAssignment:
		p = &TaskAssignment{}
	case KindTaskDecompositionRequest:
		p = &TaskDecompositionRequest{}
	case KindTaskDecompositionResponse:
		p = &TaskDecompositionResponse{}
	case KindStatusUpdate:
		p = &StatusUpdate{}
	case KindFeedback:
		p = &Feedback{}
	case KindDataRequest:
		p = &DataRequest{}
	case KindDataResponse:
		p = &DataResponse{}
	case KindConflictDetected:
		p = &ConflictDetected{}
	case KindNegotiationRequest:
		p = &NegotiationRequest{}
	case KindNegotiationResponse:
		p = &NegotiationResponse{}
	case KindResolutionFound:
		p = &ResolutionFound{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", k, err)
		}
	}
	return p, nil
}
