package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centers each feature to zero mean and unit variance.
// The fitted parameters travel inside the model artifact so the service
// applies exactly the transform the trainer fitted.
type StandardScaler struct {
	Means []float64
	Stds  []float64
}

// Fit computes per-feature mean and standard deviation over the samples.
func (s *StandardScaler) Fit(features [][]float64) error {
	if len(features) == 0 {
		return errors.New("no samples to fit scaler on")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("samples have no features")
	}

	s.Means = make([]float64, width)
	s.Stds = make([]float64, width)

	for _, row := range features {
		if len(row) != width {
			return fmt.Errorf("sample has %d features, want %d", len(row), width)
		}
		for i, value := range row {
			s.Means[i] += value
		}
	}
	n := float64(len(features))
	for i := range s.Means {
		s.Means[i] /= n
	}

	for _, row := range features {
		for i, value := range row {
			diff := value - s.Means[i]
			s.Stds[i] += diff * diff
		}
	}
	for i := range s.Stds {
		s.Stds[i] = math.Sqrt(s.Stds[i] / n)
		if s.Stds[i] == 0 {
			// constant feature, leave it centered but unscaled
			s.Stds[i] = 1
		}
	}

	return nil
}

// Transform standardizes a single feature vector.
func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if len(s.Means) == 0 {
		return nil, errors.New("scaler is not fitted")
	}
	if len(vector) != len(s.Means) {
		return nil, fmt.Errorf("vector has %d features, want %d", len(vector), len(s.Means))
	}
	scaled := make([]float64, len(vector))
	for i, value := range vector {
		scaled[i] = (value - s.Means[i]) / s.Stds[i]
	}
	return scaled, nil
}

// TransformAll standardizes every sample.
func (s *StandardScaler) TransformAll(features [][]float64) ([][]float64, error) {
	scaled := make([][]float64, len(features))
	for i, row := range features {
		transformed, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		scaled[i] = transformed
	}
	return scaled, nil
}
