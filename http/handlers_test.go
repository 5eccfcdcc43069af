package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"irisclass/db"
	"irisclass/ml"
)

func getJSON(t *testing.T, mux *http.ServeMux, path string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for %s, got %d: %s", path, w.Code, w.Body.String())
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return payload
}

func TestHandleRoot(t *testing.T) {
	payload := getJSON(t, newTestMux(t, &fakeModel{}), "/")
	if payload["service"] != "iris-classification-api" {
		t.Fatalf("unexpected service: %v", payload["service"])
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["model_loaded"] != true {
		t.Fatalf("unexpected model_loaded: %v", payload["model_loaded"])
	}
}

func TestHandleRootRejectsOtherPaths(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	w := httptest.NewRecorder()
	newTestMux(t, &fakeModel{}).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	payload := getJSON(t, newTestMux(t, &fakeModel{}), "/health")
	if payload["status"] != "healthy" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["message"] != "Iris Classification API is running and ready!" {
		t.Fatalf("unexpected message: %v", payload["message"])
	}
	if payload["model_loaded"] != true {
		t.Fatalf("unexpected model_loaded: %v", payload["model_loaded"])
	}
	if payload["timestamp"] == "" {
		t.Fatal("expected a timestamp")
	}
}

func TestHandleHealthWithoutModel(t *testing.T) {
	payload := getJSON(t, newTestMux(t, nil), "/health")
	if payload["status"] != "model_not_loaded" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["model_loaded"] != false {
		t.Fatalf("unexpected model_loaded: %v", payload["model_loaded"])
	}
}

func TestHandleModelInfo(t *testing.T) {
	payload := getJSON(t, newTestMux(t, &fakeModel{}), "/model-info")
	if payload["model_type"] != "Logistic Regression" {
		t.Fatalf("unexpected model_type: %v", payload["model_type"])
	}
	features := payload["features"].([]interface{})
	if len(features) != 4 || features[0] != "sepal_length" {
		t.Fatalf("unexpected features: %v", features)
	}
	classes := payload["classes"].([]interface{})
	if len(classes) != 3 || classes[2] != "virginica" {
		t.Fatalf("unexpected classes: %v", classes)
	}
	info := payload["training_info"].(map[string]interface{})
	if info["performance"] != "97.0% accuracy on test data" {
		t.Fatalf("unexpected performance: %v", info["performance"])
	}
}

func TestHandleSpeciesInfo(t *testing.T) {
	payload := getJSON(t, newTestMux(t, &fakeModel{}), "/species-info")
	guide := payload["species_guide"].(map[string]interface{})
	for _, species := range ml.ClassNames() {
		if _, ok := guide[species]; !ok {
			t.Fatalf("species guide is missing %q: %v", species, guide)
		}
	}
}

func TestHandleExamples(t *testing.T) {
	payload := getJSON(t, newTestMux(t, &fakeModel{}), "/examples")
	examples := payload["examples"].(map[string]interface{})
	setosa := examples["setosa"].(map[string]interface{})
	if setosa["sepal_length"].(float64) != 5.1 {
		t.Fatalf("unexpected setosa example: %v", setosa)
	}
	if len(examples) != 3 {
		t.Fatalf("expected one example per species, got %v", examples)
	}
}

func TestHandleTrainingHistory(t *testing.T) {
	run := db.TrainingRun{
		ModelName:    "iris",
		Algorithm:    "logistic_regression",
		Accuracy:     0.95,
		TrainSamples: 120,
		TestSamples:  30,
		Iterations:   151,
		Converged:    true,
		ArtifactPath: "./models/iris.json",
		TrainedAt:    time.Now().UTC(),
	}
	if err := db.SaveTrainingRun(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := getJSON(t, newTestMux(t, &fakeModel{}), "/training-history")
	if payload["count"].(float64) < 1 {
		t.Fatalf("expected at least one run, got %v", payload["count"])
	}
	runs := payload["runs"].([]interface{})
	first := runs[0].(map[string]interface{})
	if first["algorithm"] != "logistic_regression" {
		t.Fatalf("unexpected run: %v", first)
	}
}

func TestMain(m *testing.M) {
	dbPath := "./test.db"
	db.InitDB(dbPath)

	code := m.Run()

	db.Close()
	os.Remove(dbPath)
	os.Exit(code)
}
