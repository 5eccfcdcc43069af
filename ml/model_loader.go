package ml

import (
	"fmt"
)

// LoadModel reads a saved artifact and returns a ready Classifier. The
// algorithm name is recorded in the artifact and in the service config,
// both must name a supported type.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "logistic_regression":
		model := &LogisticRegression{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
