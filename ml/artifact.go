package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ArtifactSchemaVersion tags saved artifacts. Load refuses artifacts
// written under a different schema so trainer and service can never
// disagree silently about the file layout.
const ArtifactSchemaVersion = 1

// ErrArtifactMissing reports that no trained model exists at the
// configured path.
var ErrArtifactMissing = errors.New("model artifact not found")

// Artifact is the serialized form of a trained classifier: the fitted
// parameters plus the scaler state and enough metadata to audit the
// training run.
type Artifact struct {
	SchemaVersion int         `json:"schema_version"`
	Algorithm     string      `json:"algorithm"`
	FeatureNames  []string    `json:"feature_names"`
	ClassNames    []string    `json:"class_names"`
	FeatureMeans  []float64   `json:"feature_means"`
	FeatureStds   []float64   `json:"feature_stds"`
	Weights       [][]float64 `json:"weights"`
	Intercepts    []float64   `json:"intercepts"`
	Accuracy      float64     `json:"accuracy"`
	TrainSamples  int         `json:"train_samples"`
	TestSamples   int         `json:"test_samples"`
	Iterations    int         `json:"iterations"`
	Converged     bool        `json:"converged"`
	TrainedAt     time.Time   `json:"trained_at"`
}

func writeArtifact(path string, artifact Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	return nil
}

func readArtifact(path string) (Artifact, error) {
	payload, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Artifact{}, fmt.Errorf("%w at %s: train a model first with 'go run ./cmd/train_model'", ErrArtifactMissing, path)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("read model artifact %s: %w", path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("model artifact %s is not valid JSON: %v: retrain with 'go run ./cmd/train_model'", path, err)
	}
	if err := artifact.validate(); err != nil {
		return Artifact{}, fmt.Errorf("model artifact %s is unusable: %v: retrain with 'go run ./cmd/train_model'", path, err)
	}
	return artifact, nil
}

func (a Artifact) validate() error {
	if a.SchemaVersion != ArtifactSchemaVersion {
		return fmt.Errorf("schema version %d does not match supported version %d", a.SchemaVersion, ArtifactSchemaVersion)
	}
	if !equalStrings(a.FeatureNames, FeatureNames()) {
		return fmt.Errorf("feature order %v does not match expected %v", a.FeatureNames, FeatureNames())
	}
	if !equalStrings(a.ClassNames, ClassNames()) {
		return fmt.Errorf("class order %v does not match expected %v", a.ClassNames, ClassNames())
	}
	classes := len(a.ClassNames)
	width := len(a.FeatureNames)
	if len(a.Weights) != classes {
		return fmt.Errorf("artifact has %d weight rows, want %d", len(a.Weights), classes)
	}
	for i, row := range a.Weights {
		if len(row) != width {
			return fmt.Errorf("weight row %d has %d coefficients, want %d", i, len(row), width)
		}
	}
	if len(a.Intercepts) != classes {
		return fmt.Errorf("artifact has %d intercepts, want %d", len(a.Intercepts), classes)
	}
	if len(a.FeatureMeans) != width || len(a.FeatureStds) != width {
		return fmt.Errorf("artifact scaler covers %d/%d features, want %d", len(a.FeatureMeans), len(a.FeatureStds), width)
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
