package ml

// Upper bounds for plausible iris measurements in centimeters. Values above
// these are rejected before they reach the model.
const (
	MaxLengthCM = 15.0
	MaxWidthCM  = 10.0
)

// IrisMeasurements holds the four flower measurements the model consumes.
type IrisMeasurements struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

// FeatureVector flattens the measurements into the order given by
// FeatureNames. Trainer and service both go through this function, so
// feature order can never drift between the two.
func (m IrisMeasurements) FeatureVector() []float64 {
	return []float64{
		m.SepalLength,
		m.SepalWidth,
		m.PetalLength,
		m.PetalWidth,
	}
}

// FeatureNames returns the canonical feature order. The artifact stores a
// copy that is checked against this list at load time.
func FeatureNames() []string {
	return []string{
		"sepal_length",
		"sepal_width",
		"petal_length",
		"petal_width",
	}
}
