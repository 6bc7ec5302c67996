package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"health-metrics-api/internal/api/shared"
	"health-metrics-api/internal/config"
	"health-metrics-api/internal/domain"
	"health-metrics-api/internal/platform/logger"
	"health-metrics-api/internal/queue"
	"health-metrics-api/internal/store"
)

// MeasurementHandler handles blood glucose and blood pressure endpoints.
// Submissions and updates go through the queue and are persisted
// asynchronously by the worker; reads and deletes hit the store directly.
type MeasurementHandler struct {
	glucoseStore  store.GlucoseStore
	pressureStore store.PressureStore
	publisher     queue.Publisher
	validator     *validator.Validate
	broker        config.BrokerConfig
}

// NewMeasurementHandler creates a new MeasurementHandler with the given
// dependencies.
func NewMeasurementHandler(
	glucoseStore store.GlucoseStore,
	pressureStore store.PressureStore,
	publisher queue.Publisher,
	broker config.BrokerConfig,
) *MeasurementHandler {
	return &MeasurementHandler{
		glucoseStore:  glucoseStore,
		pressureStore: pressureStore,
		publisher:     publisher,
		validator:     validator.New(),
		broker:        broker,
	}
}

// SubmitGlucose handles POST /api/glucose. The reading is validated, queued,
// and acknowledged with 202 Accepted before it is persisted.
func (h *MeasurementHandler) SubmitGlucose(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req GlucoseSubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := validateClientTimestamp(req.Timestamp); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	msg := &queue.GlucoseMessage{
		UserID: userID,
		Value:  req.Value,
		Unit:   req.Unit,
		Meal:   req.Meal,
	}
	if err := msg.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.publishAndRespond(w, r, h.broker.GlucoseQueue, msg)
}

// ListGlucose handles GET /api/glucose. Only the authenticated user's
// readings are returned, newest first.
func (h *MeasurementHandler) ListGlucose(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	readings, err := h.glucoseStore.FindByOwner(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list readings")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, readings)
}

// GetGlucose handles GET /api/glucose/{id}.
func (h *MeasurementHandler) GetGlucose(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id", nil)
	if !ok {
		return
	}

	reading, err := h.glucoseStore.GetByID(r.Context(), id, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, reading)
}

// UpdateGlucose handles PUT /api/glucose/{id}. The update travels the same
// queue as a new submission, with the record ID attached; ownership is
// checked up front so the caller gets a 404 rather than a silent no-op.
func (h *MeasurementHandler) UpdateGlucose(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id", nil)
	if !ok {
		return
	}

	var req GlucoseSubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := validateClientTimestamp(req.Timestamp); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := h.glucoseStore.GetByID(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	msg := &queue.GlucoseMessage{
		RecordID: id,
		UserID:   userID,
		Value:    req.Value,
		Unit:     req.Unit,
		Meal:     req.Meal,
	}
	if err := msg.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.publishAndRespond(w, r, h.broker.GlucoseQueue, msg)
}

// DeleteGlucose handles DELETE /api/glucose/{id}.
func (h *MeasurementHandler) DeleteGlucose(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id", nil)
	if !ok {
		return
	}

	if err := h.glucoseStore.DeleteByID(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// SubmitPressure handles POST /api/pressure. Any unit sent by the client is
// discarded; pressure is stored in mm Hg.
func (h *MeasurementHandler) SubmitPressure(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req PressureSubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := validateClientTimestamp(req.Timestamp); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	msg := &queue.PressureMessage{
		UserID:    userID,
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
	}
	if err := msg.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.publishAndRespond(w, r, h.broker.PressureQueue, msg)
}

// ListPressure handles GET /api/pressure.
func (h *MeasurementHandler) ListPressure(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	readings, err := h.pressureStore.FindByOwner(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list readings")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, readings)
}

// GetPressure handles GET /api/pressure/{id}.
func (h *MeasurementHandler) GetPressure(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id", nil)
	if !ok {
		return
	}

	reading, err := h.pressureStore.GetByID(r.Context(), id, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, reading)
}

// UpdatePressure handles PUT /api/pressure/{id}.
func (h *MeasurementHandler) UpdatePressure(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id", nil)
	if !ok {
		return
	}

	var req PressureSubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := validateClientTimestamp(req.Timestamp); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := h.pressureStore.GetByID(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	msg := &queue.PressureMessage{
		RecordID:  id,
		UserID:    userID,
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
	}
	if err := msg.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.publishAndRespond(w, r, h.broker.PressureQueue, msg)
}

// DeletePressure handles DELETE /api/pressure/{id}.
func (h *MeasurementHandler) DeletePressure(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id", nil)
	if !ok {
		return
	}

	if err := h.pressureStore.DeleteByID(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// validateClientTimestamp rejects submissions claiming a measurement time in
// the future. The client's timestamp is never persisted either way; the
// worker stamps the record at durable write.
func validateClientTimestamp(ts *time.Time) error {
	if ts == nil {
		return nil
	}
	return domain.ValidateClientTimestamp(*ts, time.Now())
}

// publishAndRespond queues the message and writes the response. What a
// publish failure means to the caller is configurable: in "ignore" mode the
// submission is acknowledged anyway and the failure only logged, in "fail"
// mode the caller gets a 502 and should retry.
func (h *MeasurementHandler) publishAndRespond(
	w http.ResponseWriter,
	r *http.Request,
	queueName string,
	msg any,
) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	if err := h.publisher.Publish(r.Context(), queueName, msg); err != nil {
		if h.broker.PublishFailureMode == config.PublishFailureFail {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway,
				"Failed to queue measurement", err)
			return
		}
		log.Error("publish failed, acknowledging submission anyway",
			"queue", queueName,
			"error", err)
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{Status: "queued"})
}
