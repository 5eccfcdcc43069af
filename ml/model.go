package ml

// Classifier is the read-only surface the prediction service consumes.
// The service never trains or mutates a model, it only asks for
// predictions and artifact metadata.
type Classifier interface {
	Predict(features []float64) (Prediction, error)
	Meta() Artifact
}

// Prediction is one classification result over the full class simplex.
type Prediction struct {
	Index         int
	Species       string
	Confidence    float64
	Probabilities []float64
}
