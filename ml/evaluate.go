package ml

import (
	"errors"
	"fmt"
)

// ClassMetrics holds per-species precision and recall on the held-out set.
type ClassMetrics struct {
	Species   string  `json:"species"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// EvaluationReport summarizes classifier performance on labeled samples.
// Confusion is indexed [actual][predicted] in ClassNames order.
type EvaluationReport struct {
	Accuracy       float64        `json:"accuracy"`
	MacroPrecision float64        `json:"macro_precision"`
	MacroRecall    float64        `json:"macro_recall"`
	Samples        int            `json:"samples"`
	Confusion      [][]int        `json:"confusion"`
	PerClass       []ClassMetrics `json:"per_class"`
}

// Evaluate runs the classifier over every sample and aggregates accuracy,
// a confusion matrix and per-class metrics.
func Evaluate(model Classifier, features [][]float64, labels []int) (*EvaluationReport, error) {
	if model == nil {
		return nil, errors.New("model is nil")
	}
	if len(features) == 0 {
		return nil, errors.New("no samples to evaluate")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("got %d samples but %d labels", len(features), len(labels))
	}

	classes := ClassNames()
	confusion := make([][]int, len(classes))
	for i := range confusion {
		confusion[i] = make([]int, len(classes))
	}

	correct := 0
	for i, row := range features {
		actual := labels[i]
		if actual < 0 || actual >= len(classes) {
			return nil, fmt.Errorf("sample %d has label %d, want 0..%d", i, actual, len(classes)-1)
		}
		prediction, err := model.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("predict sample %d: %w", i, err)
		}
		confusion[actual][prediction.Index]++
		if prediction.Index == actual {
			correct++
		}
	}

	report := &EvaluationReport{
		Accuracy:  float64(correct) / float64(len(features)),
		Samples:   len(features),
		Confusion: confusion,
		PerClass:  make([]ClassMetrics, len(classes)),
	}

	for c := range classes {
		truePositives := confusion[c][c]
		predicted := 0
		actual := 0
		for other := range classes {
			predicted += confusion[other][c]
			actual += confusion[c][other]
		}
		metrics := ClassMetrics{Species: classes[c], Support: actual}
		if predicted > 0 {
			metrics.Precision = float64(truePositives) / float64(predicted)
		}
		if actual > 0 {
			metrics.Recall = float64(truePositives) / float64(actual)
		}
		if metrics.Precision+metrics.Recall > 0 {
			metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
		}
		report.PerClass[c] = metrics
		report.MacroPrecision += metrics.Precision
		report.MacroRecall += metrics.Recall
	}
	report.MacroPrecision /= float64(len(classes))
	report.MacroRecall /= float64(len(classes))

	return report, nil
}
