package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIter      = 200
	defaultLearningRate = 0.5
	defaultL2Penalty    = 0.01
	defaultTolerance    = 1e-5
)

// TrainOptions control the gradient descent fit. Zero values fall back to
// the defaults of the reference training run.
type TrainOptions struct {
	MaxIter      int
	LearningRate float64
	L2Penalty    float64
	Tolerance    float64
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = defaultMaxIter
	}
	if o.LearningRate <= 0 {
		o.LearningRate = defaultLearningRate
	}
	if o.L2Penalty < 0 {
		o.L2Penalty = defaultL2Penalty
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultTolerance
	}
	return o
}

// LogisticRegression is a multinomial softmax classifier fitted by
// full-batch gradient descent on standardized features.
type LogisticRegression struct {
	artifact Artifact
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{}
}

// Train fits one weight vector per class. Features are standardized
// first and the scaler parameters are kept in the artifact, intercepts
// are trained without regularization.
func (m *LogisticRegression) Train(features [][]float64, labels []int, opts TrainOptions) error {
	if len(features) == 0 {
		return errors.New("no training samples")
	}
	if len(features) != len(labels) {
		return fmt.Errorf("got %d samples but %d labels", len(features), len(labels))
	}
	classes := ClassNames()
	for i, label := range labels {
		if label < 0 || label >= len(classes) {
			return fmt.Errorf("sample %d has label %d, want 0..%d", i, label, len(classes)-1)
		}
	}
	width := len(FeatureNames())
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("sample %d has %d features, want %d", i, len(row), width)
		}
	}
	opts = opts.withDefaults()

	var scaler StandardScaler
	if err := scaler.Fit(features); err != nil {
		return err
	}
	scaled, err := scaler.TransformAll(features)
	if err != nil {
		return err
	}

	n := len(scaled)
	k := len(classes)

	x := mat.NewDense(n, width, nil)
	for i, row := range scaled {
		x.SetRow(i, row)
	}
	oneHot := mat.NewDense(n, k, nil)
	for i, label := range labels {
		oneHot.Set(i, label, 1)
	}

	weights := mat.NewDense(width, k, nil)
	intercepts := make([]float64, k)
	probs := mat.NewDense(n, k, nil)
	row := make([]float64, k)

	var logits, diff, grad, penalty mat.Dense
	iterations := 0
	converged := false
	for iterations < opts.MaxIter {
		iterations++

		logits.Mul(x, weights)
		for i := 0; i < n; i++ {
			for j := 0; j < k; j++ {
				row[j] = logits.At(i, j) + intercepts[j]
			}
			softmaxInPlace(row)
			probs.SetRow(i, row)
		}

		diff.Sub(probs, oneHot)
		grad.Mul(x.T(), &diff)
		grad.Scale(1/float64(n), &grad)
		if opts.L2Penalty > 0 {
			penalty.Scale(opts.L2Penalty, weights)
			grad.Add(&grad, &penalty)
		}

		maxDelta := 0.0
		for i := 0; i < width; i++ {
			for j := 0; j < k; j++ {
				delta := opts.LearningRate * grad.At(i, j)
				weights.Set(i, j, weights.At(i, j)-delta)
				if math.Abs(delta) > maxDelta {
					maxDelta = math.Abs(delta)
				}
			}
		}
		for j := 0; j < k; j++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += diff.At(i, j)
			}
			delta := opts.LearningRate * sum / float64(n)
			intercepts[j] -= delta
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}

		if maxDelta < opts.Tolerance {
			converged = true
			break
		}
	}

	coefficients := make([][]float64, k)
	for c := 0; c < k; c++ {
		coefficients[c] = make([]float64, width)
		for j := 0; j < width; j++ {
			coefficients[c][j] = weights.At(j, c)
		}
	}

	m.artifact = Artifact{
		SchemaVersion: ArtifactSchemaVersion,
		Algorithm:     "logistic_regression",
		FeatureNames:  FeatureNames(),
		ClassNames:    classes,
		FeatureMeans:  scaler.Means,
		FeatureStds:   scaler.Stds,
		Weights:       coefficients,
		Intercepts:    intercepts,
		TrainSamples:  n,
		Iterations:    iterations,
		Converged:     converged,
		TrainedAt:     time.Now().UTC(),
	}
	return nil
}

// Predict classifies one feature vector and returns the probability of
// every class alongside the winner.
func (m *LogisticRegression) Predict(features []float64) (Prediction, error) {
	if len(m.artifact.Weights) == 0 {
		return Prediction{}, errors.New("model is not trained")
	}
	if len(features) != len(m.artifact.FeatureNames) {
		return Prediction{}, fmt.Errorf("got %d features, want %d", len(features), len(m.artifact.FeatureNames))
	}

	scaler := StandardScaler{Means: m.artifact.FeatureMeans, Stds: m.artifact.FeatureStds}
	scaled, err := scaler.Transform(features)
	if err != nil {
		return Prediction{}, err
	}

	logits := make([]float64, len(m.artifact.ClassNames))
	for c, coefficients := range m.artifact.Weights {
		sum := m.artifact.Intercepts[c]
		for j, value := range scaled {
			sum += coefficients[j] * value
		}
		logits[c] = sum
	}
	softmaxInPlace(logits)

	best := 0
	for c := range logits {
		if logits[c] > logits[best] {
			best = c
		}
	}
	return Prediction{
		Index:         best,
		Species:       m.artifact.ClassNames[best],
		Confidence:    logits[best],
		Probabilities: logits,
	}, nil
}

// RecordEvaluation stores the held-out accuracy and sample counts in the
// artifact before it is saved.
func (m *LogisticRegression) RecordEvaluation(accuracy float64, testSamples int) {
	m.artifact.Accuracy = accuracy
	m.artifact.TestSamples = testSamples
}

// Meta returns a copy of the artifact metadata.
func (m *LogisticRegression) Meta() Artifact {
	return m.artifact
}

func (m *LogisticRegression) Save(path string) error {
	if len(m.artifact.Weights) == 0 {
		return errors.New("model is not trained")
	}
	return writeArtifact(path, m.artifact)
}

func (m *LogisticRegression) Load(path string) error {
	artifact, err := readArtifact(path)
	if err != nil {
		return err
	}
	m.artifact = artifact
	return nil
}

// softmaxInPlace turns logits into a probability distribution. The row
// maximum is subtracted before exponentiation to keep the exponentials
// in range.
func softmaxInPlace(logits []float64) {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for i, v := range logits {
		logits[i] = math.Exp(v - max)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
}
