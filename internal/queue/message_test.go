package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-metrics-api/internal/domain"
)

func TestDecodeGlucoseMessage(t *testing.T) {
	t.Parallel()

	t.Run("valid message", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{"user_id":7,"blood_glucose":110.0,"unit":"mg/dL","meal":"fasting"}`)

		msg, err := DecodeGlucoseMessage(body)
		require.NoError(t, err)
		assert.Equal(t, int64(7), msg.UserID)
		assert.Equal(t, 110.0, msg.Value)
		assert.Equal(t, "mg/dL", msg.Unit)
		assert.Equal(t, "fasting", msg.Meal)
		assert.Zero(t, msg.RecordID)
	})

	t.Run("update message carries record id", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{"record_id":12,"user_id":7,"blood_glucose":95.5,"unit":"mg/dL","meal":"pre-meal"}`)

		msg, err := DecodeGlucoseMessage(body)
		require.NoError(t, err)
		assert.Equal(t, int64(12), msg.RecordID)
	})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"unknown field", `{"user_id":7,"blood_glucose":110.0,"unit":"mg/dL","meal":"fasting","extra":1}`},
		{"trailing data", `{"user_id":7,"blood_glucose":110.0,"unit":"mg/dL","meal":"fasting"} garbage`},
		{"missing owner", `{"blood_glucose":110.0,"unit":"mg/dL","meal":"fasting"}`},
		{"non-positive value", `{"user_id":7,"blood_glucose":0,"unit":"mg/dL","meal":"fasting"}`},
		{"bad unit", `{"user_id":7,"blood_glucose":110.0,"unit":"g/L","meal":"fasting"}`},
		{"bad meal", `{"user_id":7,"blood_glucose":110.0,"unit":"mg/dL","meal":"snack"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeGlucoseMessage([]byte(tc.body))
			require.Error(t, err)
		})
	}
}

func TestDecodePressureMessage(t *testing.T) {
	t.Parallel()

	t.Run("valid message", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{"user_id":7,"systolic":120,"diastolic":80}`)

		msg, err := DecodePressureMessage(body)
		require.NoError(t, err)
		assert.Equal(t, int64(7), msg.UserID)
		assert.Equal(t, 120, msg.Systolic)
		assert.Equal(t, 80, msg.Diastolic)
	})

	t.Run("client unit is carried but not validated", func(t *testing.T) {
		t.Parallel()
		// The worker discards the unit and stores mm Hg regardless.
		body := []byte(`{"user_id":7,"systolic":120,"diastolic":80,"unit":"kPa"}`)

		msg, err := DecodePressureMessage(body)
		require.NoError(t, err)
		assert.Equal(t, "kPa", msg.Unit)
	})

	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"user_id":7,"systolic":120,"diastolic":80,"pulse":60}`},
		{"missing owner", `{"systolic":120,"diastolic":80}`},
		{"zero systolic", `{"user_id":7,"systolic":0,"diastolic":80}`},
		{"negative diastolic", `{"user_id":7,"systolic":120,"diastolic":-1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodePressureMessage([]byte(tc.body))
			require.Error(t, err)
		})
	}
}

func TestGlucoseMessageValidate_MatchesDomainRules(t *testing.T) {
	t.Parallel()

	msg := &GlucoseMessage{UserID: 7, Value: 5.4, Unit: string(domain.GlucoseUnitMmolL), Meal: string(domain.MealBeforeBed)}
	require.NoError(t, msg.Validate())

	msg.Unit = "furlongs"
	require.Error(t, msg.Validate())
}
