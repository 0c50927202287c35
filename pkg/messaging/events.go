package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Identity event types
const (
	EventUserSignedUp     = "identity.user.signed_up"
	EventSessionSignedIn  = "identity.session.signed_in"
	EventSessionSignedOut = "identity.session.signed_out"
)

// Pharmacy event types
const (
	EventCustomerCreated = "pharmacy.customer.created"
	EventScanRecorded    = "pharmacy.scan.recorded"
	EventNoteCreated     = "pharmacy.note.created"
	EventNoteCompleted   = "pharmacy.note.completed"
	EventNoteDeleted     = "pharmacy.note.deleted"
	EventProfileUpdated  = "pharmacy.profile.updated"
)

// Exchange names
const (
	ExchangeIdentityEvents = "identity.events"
	ExchangePharmacyEvents = "pharmacy.events"
)

// Event is the envelope every message carries
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// UserSignedUpEvent is published when an account is created, by password or provider
type UserSignedUpEvent struct {
	UserID   string            `json:"user_id"`
	Email    string            `json:"email"`
	Provider string            `json:"provider"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SessionEvent is published on sign-in and sign-out
type SessionEvent struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type CustomerCreatedEvent struct {
	CustomerID string `json:"customer_id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
}

// ScanRecordedEvent is published for each pack collection
type ScanRecordedEvent struct {
	ScanID         string    `json:"scan_id"`
	UserID         string    `json:"user_id"`
	CustomerID     string    `json:"customer_id"`
	Barcode        string    `json:"barcode"`
	StaffInitials  string    `json:"staff_initials"`
	WeeksSupply    int       `json:"weeks_supply"`
	CollectionDate time.Time `json:"collection_date"`
	NextDueDate    time.Time `json:"next_due_date"`
}

type NoteEvent struct {
	NoteID      string `json:"note_id"`
	CustomerID  string `json:"customer_id"`
	UserID      string `json:"user_id"`
	IsCompleted bool   `json:"is_completed"`
}

type ProfileUpdatedEvent struct {
	UserID       string `json:"user_id"`
	PharmacyName string `json:"pharmacy_name"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
