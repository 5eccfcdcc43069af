package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"irisclass/db"
	"irisclass/ml"
	"irisclass/monitoring"
)

// timeLayout renders response timestamps, always in UTC.
const timeLayout = "2006-01-02 15:04:05 UTC"

const defaultCacheSize = 512

// ConfidenceTiers holds the thresholds that pick the interpretation
// sentence for a prediction.
type ConfidenceTiers struct {
	VeryConfident     float64 `yaml:"very_confident"`
	Confident         float64 `yaml:"confident"`
	SomewhatConfident float64 `yaml:"somewhat_confident"`
}

func DefaultConfidenceTiers() ConfidenceTiers {
	return ConfidenceTiers{
		VeryConfident:     0.90,
		Confident:         0.70,
		SomewhatConfident: 0.50,
	}
}

// Validate checks the thresholds are strictly descending within (0, 1).
func (t ConfidenceTiers) Validate() error {
	if t.VeryConfident <= 0 || t.VeryConfident >= 1 {
		return fmt.Errorf("very_confident %v is out of range (0, 1)", t.VeryConfident)
	}
	if t.Confident >= t.VeryConfident || t.Confident <= 0 {
		return fmt.Errorf("confident %v must be below very_confident and above 0", t.Confident)
	}
	if t.SomewhatConfident >= t.Confident || t.SomewhatConfident <= 0 {
		return fmt.Errorf("somewhat_confident %v must be below confident and above 0", t.SomewhatConfident)
	}
	return nil
}

// HandlersConfig carries the tunable parts of the handler set. Zero
// values fall back to defaults.
type HandlersConfig struct {
	Tiers     ConfidenceTiers
	CacheSize int
}

// Handlers serves the prediction API. The model is injected once at
// construction and never swapped while the process runs.
type Handlers struct {
	model   ml.Classifier
	tiers   ConfidenceTiers
	cache   *lru.Cache[[4]float64, ml.Prediction]
	monitor *monitoring.PredictionMonitor
	logger  *zap.Logger
}

// NewHandlers wires the handler set. A nil model leaves the service in
// a degraded state where prediction endpoints answer 503. monitor may
// be nil when the WebSocket feed is disabled.
func NewHandlers(model ml.Classifier, config HandlersConfig, monitor *monitoring.PredictionMonitor, logger *zap.Logger) (*Handlers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tiers := config.Tiers
	if tiers == (ConfidenceTiers{}) {
		tiers = DefaultConfidenceTiers()
	}
	if err := tiers.Validate(); err != nil {
		return nil, fmt.Errorf("confidence tiers: %w", err)
	}

	size := config.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[[4]float64, ml.Prediction](size)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}

	return &Handlers{
		model:   model,
		tiers:   tiers,
		cache:   cache,
		monitor: monitor,
		logger:  logger,
	}, nil
}

// Register mounts every API route on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /model-info", h.handleModelInfo)
	mux.HandleFunc("GET /species-info", h.handleSpeciesInfo)
	mux.HandleFunc("GET /examples", h.handleExamples)
	mux.HandleFunc("GET /training-history", h.handleTrainingHistory)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("POST /predict-batch", h.handlePredictBatch)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"service":      "iris-classification-api",
		"status":       "ok",
		"model_loaded": h.model != nil,
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := h.model != nil
	status := "healthy"
	message := "Iris Classification API is running and ready!"
	if !loaded {
		status = "model_not_loaded"
		message = "API is running but model is not loaded"
	}

	respondJSON(w, map[string]interface{}{
		"status":       status,
		"message":      message,
		"timestamp":    time.Now().UTC().Format(timeLayout),
		"model_loaded": loaded,
	})
}

func (h *Handlers) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		respondModelNotLoaded(w)
		return
	}
	meta := h.model.Meta()

	respondJSON(w, map[string]interface{}{
		"model_type":   "Logistic Regression",
		"problem_type": "Multi-class Classification",
		"features":     ml.FeatureNames(),
		"classes":      ml.ClassNames(),
		"training_info": map[string]string{
			"dataset":        "Iris flower dataset (150 samples)",
			"training_split": "80% training, 20% testing",
			"algorithm":      "Logistic Regression with L2 regularization",
			"performance":    fmt.Sprintf("%.1f%% accuracy on test data", meta.Accuracy*100),
			"features_used":  "4 flower measurements (sepal & petal dimensions)",
		},
		"artifact": map[string]interface{}{
			"schema_version": meta.SchemaVersion,
			"algorithm":      meta.Algorithm,
			"accuracy":       meta.Accuracy,
			"train_samples":  meta.TrainSamples,
			"test_samples":   meta.TestSamples,
			"iterations":     meta.Iterations,
			"converged":      meta.Converged,
			"trained_at":     meta.TrainedAt,
		},
	})
}

func (h *Handlers) handleSpeciesInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"species_guide": ml.SpeciesGuide(),
	})
}

func (h *Handlers) handleExamples(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"examples": map[string]ml.IrisMeasurements{
			"setosa":     {SepalLength: 5.1, SepalWidth: 3.5, PetalLength: 1.4, PetalWidth: 0.2},
			"versicolor": {SepalLength: 6.2, SepalWidth: 2.9, PetalLength: 4.3, PetalWidth: 1.3},
			"virginica":  {SepalLength: 6.3, SepalWidth: 3.3, PetalLength: 6.0, PetalWidth: 2.5},
		},
	})
}

func (h *Handlers) handleTrainingHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := db.LoadTrainingRuns(20)
	if err != nil {
		h.logger.Error("failed to load training history",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		http.Error(w, `{"error":"training history unavailable"}`, http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// respondJSON writes data as a JSON response
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode JSON response", zap.Error(err))
	}
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode JSON response", zap.Error(err))
	}
}

func respondModelNotLoaded(w http.ResponseWriter) {
	respondJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
		"error": "model not loaded",
	})
}
