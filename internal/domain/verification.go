package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VerificationMethod describes how a field value was confirmed.
type VerificationMethod string

const (
	MethodCalled  VerificationMethod = "called"
	MethodWebsite VerificationMethod = "website"
	MethodOnsite  VerificationMethod = "onsite"
	MethodOther   VerificationMethod = "other"
)

// ParseVerificationMethod validates a raw method string.
func ParseVerificationMethod(raw string) (VerificationMethod, error) {
	switch VerificationMethod(raw) {
	case MethodCalled, MethodWebsite, MethodOnsite, MethodOther:
		return VerificationMethod(raw), nil
	default:
		return "", fmt.Errorf("unknown verification method: %q", raw)
	}
}

// VerificationEvent is an append-only record that a field was confirmed
// by some method at some time. Events are never mutated or deleted.
type VerificationEvent struct {
	ID         uuid.UUID          `json:"id"`
	EntityType EntityType         `json:"entity_type"`
	EntityID   uuid.UUID          `json:"entity_id"`
	FieldPath  string             `json:"field_path"`
	Method     VerificationMethod `json:"method"`
	Note       string             `json:"note,omitempty"`
	VerifiedBy uuid.UUID          `json:"verified_by"`
	VerifiedAt time.Time          `json:"verified_at"`
}

// ChecklistItem maps a named verification task onto the field it confirms
// and the method it implies.
type ChecklistItem struct {
	FieldPath string
	Method    VerificationMethod
}

// VerificationChecklist is the fixed table behind the {item} shorthand on
// the verify endpoint.
var VerificationChecklist = map[string]ChecklistItem{
	"phone_answered":  {FieldPath: "service.phone", Method: MethodCalled},
	"website_loads":   {FieldPath: "service.url", Method: MethodWebsite},
	"email_bounced":   {FieldPath: "service.email", Method: MethodOther},
	"hours_confirmed": {FieldPath: "service.hours", Method: MethodCalled},
	"address_visited": {FieldPath: "location.address", Method: MethodOnsite},
	"still_operating": {FieldPath: "service.status", Method: MethodCalled},
}
