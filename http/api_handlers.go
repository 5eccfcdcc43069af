package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"irisclass/ml"
	"irisclass/monitoring"
)

// PredictRequest carries one set of flower measurements. Pointer fields
// keep absent and null apart from zero during validation.
type PredictRequest struct {
	SepalLength *float64 `json:"sepal_length"`
	SepalWidth  *float64 `json:"sepal_width"`
	PetalLength *float64 `json:"petal_length"`
	PetalWidth  *float64 `json:"petal_width"`
}

// BatchPredictRequest wraps many flowers for one call.
type BatchPredictRequest struct {
	Flowers []PredictRequest `json:"flowers"`
}

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PredictionResponse is the classification answer for one flower.
type PredictionResponse struct {
	Species              string             `json:"species"`
	Confidence           float64            `json:"confidence"`
	ConfidencePercentage string             `json:"confidence_percentage"`
	Probabilities        map[string]float64 `json:"probabilities"`
	Interpretation       string             `json:"interpretation"`
	Timestamp            string             `json:"timestamp"`
}

// validate checks the four measurements and returns every violation at
// once. prefix qualifies field names in batch requests.
func (r PredictRequest) validate(prefix string) (ml.IrisMeasurements, []FieldError) {
	fields := []struct {
		name  string
		value *float64
		max   float64
	}{
		{"sepal_length", r.SepalLength, ml.MaxLengthCM},
		{"sepal_width", r.SepalWidth, ml.MaxWidthCM},
		{"petal_length", r.PetalLength, ml.MaxLengthCM},
		{"petal_width", r.PetalWidth, ml.MaxWidthCM},
	}

	var details []FieldError
	values := make([]float64, len(fields))
	for i, field := range fields {
		name := prefix + field.name
		if field.value == nil {
			details = append(details, FieldError{Field: name, Message: "is required"})
			continue
		}
		value := *field.value
		if value <= 0 {
			details = append(details, FieldError{Field: name, Message: "must be greater than 0"})
			continue
		}
		if value > field.max {
			details = append(details, FieldError{Field: name, Message: fmt.Sprintf("must be at most %g", field.max)})
			continue
		}
		values[i] = value
	}

	return ml.IrisMeasurements{
		SepalLength: values[0],
		SepalWidth:  values[1],
		PetalLength: values[2],
		PetalWidth:  values[3],
	}, details
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBodyError(w, err)
		return
	}

	measurements, details := req.validate("")
	if len(details) > 0 {
		respondJSONStatus(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	if h.model == nil {
		respondModelNotLoaded(w)
		return
	}

	response, err := h.predictOne(r.Context(), measurements)
	if err != nil {
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	respondJSON(w, response)
}

func (h *Handlers) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBodyError(w, err)
		return
	}

	if len(req.Flowers) == 0 {
		respondJSONStatus(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "validation failed",
			"details": []FieldError{{Field: "flowers", Message: "must contain at least one flower"}},
		})
		return
	}

	var details []FieldError
	measurements := make([]ml.IrisMeasurements, len(req.Flowers))
	for i, flower := range req.Flowers {
		m, fieldErrors := flower.validate(fmt.Sprintf("flowers[%d].", i))
		measurements[i] = m
		details = append(details, fieldErrors...)
	}
	if len(details) > 0 {
		respondJSONStatus(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	if h.model == nil {
		respondModelNotLoaded(w)
		return
	}

	predictions := make([]PredictionResponse, 0, len(measurements))
	summary := make(map[string]int, len(ml.ClassNames()))
	for _, name := range ml.ClassNames() {
		summary[name] = 0
	}
	for _, m := range measurements {
		response, err := h.predictOne(r.Context(), m)
		if err != nil {
			h.logger.Error("batch prediction failed",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err))
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		predictions = append(predictions, response)
		summary[response.Species]++
	}

	respondJSON(w, map[string]interface{}{
		"predictions": predictions,
		"summary":     summary,
	})
}

// predictOne answers one measurement set, via the LRU cache when the
// same measurements were seen before. The model is deterministic, so a
// cached answer only differs in its timestamp.
func (h *Handlers) predictOne(ctx context.Context, m ml.IrisMeasurements) (PredictionResponse, error) {
	key := [4]float64{m.SepalLength, m.SepalWidth, m.PetalLength, m.PetalWidth}

	prediction, cached := h.cache.Get(key)
	if !cached {
		var err error
		prediction, err = h.model.Predict(m.FeatureVector())
		if err != nil {
			return PredictionResponse{}, err
		}
		h.cache.Add(key, prediction)
	}
	ObservePrediction(prediction.Species, cached)

	probabilities := make(map[string]float64, len(prediction.Probabilities))
	for i, name := range ml.ClassNames() {
		if i < len(prediction.Probabilities) {
			probabilities[name] = prediction.Probabilities[i]
		}
	}

	response := PredictionResponse{
		Species:              prediction.Species,
		Confidence:           prediction.Confidence,
		ConfidencePercentage: fmt.Sprintf("%.1f%%", prediction.Confidence*100),
		Probabilities:        probabilities,
		Interpretation:       h.interpret(prediction.Species, prediction.Confidence),
		Timestamp:            time.Now().UTC().Format(timeLayout),
	}

	if h.monitor != nil {
		h.monitor.SendPrediction(monitoring.PredictionMessage{
			RequestID:     GetRequestID(ctx),
			Species:       prediction.Species,
			Confidence:    prediction.Confidence,
			Probabilities: probabilities,
			Cached:        cached,
			Timestamp:     time.Now().UTC(),
		})
	}

	return response, nil
}

// interpret picks the confidence tier sentence for a prediction.
func (h *Handlers) interpret(species string, confidence float64) string {
	name := ml.ShoutName(species)
	switch {
	case confidence >= h.tiers.VeryConfident:
		return fmt.Sprintf("Very confident this is a %s! The measurements strongly match this species.", name)
	case confidence >= h.tiers.Confident:
		return fmt.Sprintf("Likely a %s. The measurements are consistent with this species.", name)
	case confidence >= h.tiers.SomewhatConfident:
		return fmt.Sprintf("Probably a %s, but consider checking measurements or consulting an expert.", name)
	default:
		return "Uncertain prediction. The measurements don't clearly match any species pattern."
	}
}

// respondBodyError maps request body decode failures to client errors.
func respondBodyError(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		respondJSONStatus(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("field %s must be a number", typeErr.Field),
		})
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respondJSONStatus(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "request body too large",
		})
		return
	}

	respondJSONStatus(w, http.StatusBadRequest, map[string]string{
		"error": "invalid request body",
	})
}
