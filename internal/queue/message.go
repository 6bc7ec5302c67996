package queue

import (
	"bytes"
	"encoding/json"
	"fmt"

	"health-metrics-api/internal/domain"
)

// GlucoseMessage is the queued form of a blood glucose submission.
// RecordID is zero for new submissions; a non-zero RecordID re-enqueues an
// owner-initiated update of an existing record.
type GlucoseMessage struct {
	RecordID int64   `json:"record_id,omitempty"`
	UserID   int64   `json:"user_id"`
	Value    float64 `json:"blood_glucose"`
	Unit     string  `json:"unit"`
	Meal     string  `json:"meal"`
}

// Validate checks the message fields against the domain rules.
func (m *GlucoseMessage) Validate() error {
	_, err := domain.NewGlucoseReading(
		m.UserID,
		m.Value,
		domain.GlucoseUnit(m.Unit),
		domain.MealContext(m.Meal),
	)
	return err
}

// PressureMessage is the queued form of a blood pressure submission.
// The Unit field is accepted on the wire for compatibility but ignored:
// the worker always forces domain.PressureUnit.
type PressureMessage struct {
	RecordID  int64  `json:"record_id,omitempty"`
	UserID    int64  `json:"user_id"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Unit      string `json:"unit,omitempty"`
}

// Validate checks the message fields against the domain rules.
func (m *PressureMessage) Validate() error {
	_, err := domain.NewPressureReading(m.UserID, m.Systolic, m.Diastolic)
	return err
}

// DecodeGlucoseMessage parses a glucose message from its wire form.
// Unknown fields and domain violations are both rejected here, at the queue
// boundary, so the worker only ever processes well-formed messages.
func DecodeGlucoseMessage(data []byte) (*GlucoseMessage, error) {
	var msg GlucoseMessage
	if err := decodeStrict(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed glucose message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid glucose message: %w", err)
	}
	return &msg, nil
}

// DecodePressureMessage parses a pressure message from its wire form.
// Unknown fields and domain violations are both rejected here.
func DecodePressureMessage(data []byte) (*PressureMessage, error) {
	var msg PressureMessage
	if err := decodeStrict(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed pressure message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pressure message: %w", err)
	}
	return &msg, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Trailing garbage after the JSON object is also a malformed payload.
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}
