package ml

import (
	"math"
	"testing"
)

// echoClassifier predicts whatever class index the first feature holds.
type echoClassifier struct{}

func (echoClassifier) Predict(features []float64) (Prediction, error) {
	index := int(features[0])
	probs := make([]float64, len(ClassNames()))
	probs[index] = 1
	return Prediction{Index: index, Species: ClassNames()[index], Confidence: 1, Probabilities: probs}, nil
}

func (echoClassifier) Meta() Artifact { return Artifact{} }

func TestEvaluateComputesConfusionAndMetrics(t *testing.T) {
	// predictions: 0 0 1 1 2 0, actuals: 0 0 1 2 2 1
	features := [][]float64{{0}, {0}, {1}, {1}, {2}, {0}}
	labels := []int{0, 0, 1, 2, 2, 1}

	report, err := Evaluate(echoClassifier{}, features, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Samples != 6 {
		t.Fatalf("expected 6 samples, got %d", report.Samples)
	}
	if math.Abs(report.Accuracy-4.0/6.0) > 1e-9 {
		t.Fatalf("expected accuracy 4/6, got %f", report.Accuracy)
	}
	if report.Confusion[0][0] != 2 {
		t.Fatalf("expected 2 correct setosa, got %d", report.Confusion[0][0])
	}
	if report.Confusion[2][1] != 1 || report.Confusion[1][0] != 1 {
		t.Fatalf("unexpected confusion matrix: %v", report.Confusion)
	}

	setosa := report.PerClass[0]
	if setosa.Support != 2 {
		t.Fatalf("expected setosa support 2, got %d", setosa.Support)
	}
	// setosa: 2 true positives out of 3 predicted, 2 actual
	if math.Abs(setosa.Precision-2.0/3.0) > 1e-9 {
		t.Fatalf("expected setosa precision 2/3, got %f", setosa.Precision)
	}
	if setosa.Recall != 1 {
		t.Fatalf("expected setosa recall 1, got %f", setosa.Recall)
	}

	virginica := report.PerClass[2]
	if math.Abs(virginica.Recall-0.5) > 1e-9 {
		t.Fatalf("expected virginica recall 0.5, got %f", virginica.Recall)
	}
	if virginica.Precision != 1 {
		t.Fatalf("expected virginica precision 1, got %f", virginica.Precision)
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	if _, err := Evaluate(nil, [][]float64{{0}}, []int{0}); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := Evaluate(echoClassifier{}, nil, nil); err == nil {
		t.Fatal("expected error for empty samples")
	}
	if _, err := Evaluate(echoClassifier{}, [][]float64{{0}}, []int{0, 1}); err == nil {
		t.Fatal("expected error for mismatched labels")
	}
	if _, err := Evaluate(echoClassifier{}, [][]float64{{0}}, []int{9}); err == nil {
		t.Fatal("expected error for out of range label")
	}
}
