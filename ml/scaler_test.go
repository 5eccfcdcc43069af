package ml

import (
	"math"
	"testing"
)

func TestStandardScalerFitTransform(t *testing.T) {
	features := [][]float64{
		{1, 10, 5, 2},
		{2, 20, 5, 4},
		{3, 30, 5, 6},
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(features); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaler.Means[0] != 2 || scaler.Means[1] != 20 || scaler.Means[2] != 5 || scaler.Means[3] != 4 {
		t.Fatalf("unexpected means: %v", scaler.Means)
	}
	// constant third column falls back to std 1
	if scaler.Stds[2] != 1 {
		t.Fatalf("expected std 1 for constant feature, got %f", scaler.Stds[2])
	}

	scaled, err := scaler.TransformAll(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for column := 0; column < 4; column++ {
		mean := 0.0
		for _, row := range scaled {
			mean += row[column]
		}
		mean /= float64(len(scaled))
		if math.Abs(mean) > 1e-9 {
			t.Fatalf("expected scaled column %d to be centered, got mean %f", column, mean)
		}
	}
	for _, row := range scaled {
		if row[2] != 0 {
			t.Fatalf("expected constant feature to scale to 0, got %f", row[2])
		}
	}
	variance := 0.0
	for _, row := range scaled {
		variance += row[0] * row[0]
	}
	variance /= float64(len(scaled))
	if math.Abs(variance-1) > 1e-9 {
		t.Fatalf("expected unit variance, got %f", variance)
	}
}

func TestStandardScalerRejectsBadInput(t *testing.T) {
	scaler := &StandardScaler{}
	if err := scaler.Fit(nil); err == nil {
		t.Fatal("expected error for empty fit")
	}
	if _, err := scaler.Transform([]float64{1, 2}); err == nil {
		t.Fatal("expected error for unfitted scaler")
	}

	if err := scaler.Fit([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := scaler.Transform([]float64{1}); err == nil {
		t.Fatal("expected error for wrong vector length")
	}
	if err := scaler.Fit([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged samples")
	}
}
