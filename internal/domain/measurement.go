package domain

import (
	"fmt"
	"time"
)

// MeasurementKind discriminates the two measurement variants.
type MeasurementKind string

// Supported measurement kinds.
const (
	MeasurementKindGlucose  MeasurementKind = "glucose"
	MeasurementKindPressure MeasurementKind = "pressure"
)

// GlucoseUnit is the unit of a blood glucose measurement.
type GlucoseUnit string

// Valid glucose units.
const (
	GlucoseUnitMgDL  GlucoseUnit = "mg/dL"
	GlucoseUnitMmolL GlucoseUnit = "mmol/L"
)

// MealContext describes when a glucose measurement was taken relative
// to eating.
type MealContext string

// Valid meal contexts.
const (
	MealPre       MealContext = "pre-meal"
	MealPost      MealContext = "post-meal"
	MealFasting   MealContext = "fasting"
	MealBeforeBed MealContext = "before-bed"
)

// PressureUnit is the only unit blood pressure readings are stored in.
// Client-supplied units are overwritten with this constant.
const PressureUnit = "mm Hg"

// Common validation errors for measurements. Each wraps ErrValidation so
// callers can detect any validation failure with a single errors.Is check.
var (
	ErrEmptyOwnerID       = fmt.Errorf("%w: owner ID cannot be empty", ErrValidation)
	ErrNonPositiveValue   = fmt.Errorf("%w: value must be greater than zero", ErrValidation)
	ErrInvalidGlucoseUnit = fmt.Errorf("%w: unit must be mg/dL or mmol/L", ErrValidation)
	ErrInvalidMealContext = fmt.Errorf("%w: meal context is not a recognized value", ErrValidation)
	ErrFutureTimestamp    = fmt.Errorf("%w: timestamp cannot be in the future", ErrValidation)
)

// GlucoseReading represents a persisted blood glucose measurement.
// ID is assigned by the store; Timestamp is assigned by the worker at the
// moment of durable acceptance and is never trusted from the client.
type GlucoseReading struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Value     float64     `json:"blood_glucose"`
	Unit      GlucoseUnit `json:"unit"`
	Meal      MealContext `json:"meal"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewGlucoseReading creates a glucose reading owned by the given user.
// The timestamp is left zero: it is stamped server-side when the worker
// writes the record. Returns a ValidationError if any field is invalid.
func NewGlucoseReading(
	userID int64,
	value float64,
	unit GlucoseUnit,
	meal MealContext,
) (*GlucoseReading, error) {
	r := &GlucoseReading{
		UserID: userID,
		Value:  value,
		Unit:   unit,
		Meal:   meal,
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the reading's field constraints.
// Returns a ValidationError describing the first violated constraint.
func (r *GlucoseReading) Validate() error {
	if r.UserID <= 0 {
		return NewValidationError("user_id", "must identify an owner", ErrEmptyOwnerID)
	}

	if r.Value <= 0 {
		return NewValidationError("blood_glucose", "must be greater than zero", ErrNonPositiveValue)
	}

	if !isValidGlucoseUnit(r.Unit) {
		return NewValidationError("unit", "must be mg/dL or mmol/L", ErrInvalidGlucoseUnit)
	}

	if !isValidMealContext(r.Meal) {
		return NewValidationError("meal", "is not a recognized meal context", ErrInvalidMealContext)
	}

	return nil
}

// PressureReading represents a persisted blood pressure measurement.
// The unit is always PressureUnit regardless of client input.
type PressureReading struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPressureReading creates a pressure reading owned by the given user.
// The unit is forced to PressureUnit and the timestamp is left zero, to be
// stamped by the worker at write time.
// Returns a ValidationError if any field is invalid.
func NewPressureReading(userID int64, systolic, diastolic int) (*PressureReading, error) {
	r := &PressureReading{
		UserID:    userID,
		Systolic:  systolic,
		Diastolic: diastolic,
		Unit:      PressureUnit,
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the reading's field constraints.
// Returns a ValidationError describing the first violated constraint.
func (r *PressureReading) Validate() error {
	if r.UserID <= 0 {
		return NewValidationError("user_id", "must identify an owner", ErrEmptyOwnerID)
	}

	if r.Systolic <= 0 {
		return NewValidationError("systolic", "must be greater than zero", ErrNonPositiveValue)
	}

	if r.Diastolic <= 0 {
		return NewValidationError("diastolic", "must be greater than zero", ErrNonPositiveValue)
	}

	if r.Unit != PressureUnit {
		return NewValidationError("unit", "must be "+PressureUnit, ErrValidation)
	}

	return nil
}

// ValidateClientTimestamp rejects timestamps ahead of the server clock.
// Client-supplied timestamps are accepted for validation only; the stored
// timestamp is always assigned server-side by the worker.
func ValidateClientTimestamp(ts time.Time, now time.Time) error {
	if ts.IsZero() {
		return nil
	}
	if ts.After(now) {
		return NewValidationError("timestamp", "cannot be in the future", ErrFutureTimestamp)
	}
	return nil
}

func isValidGlucoseUnit(u GlucoseUnit) bool {
	switch u {
	case GlucoseUnitMgDL, GlucoseUnitMmolL:
		return true
	default:
		return false
	}
}

func isValidMealContext(m MealContext) bool {
	switch m {
	case MealPre, MealPost, MealFasting, MealBeforeBed:
		return true
	default:
		return false
	}
}
