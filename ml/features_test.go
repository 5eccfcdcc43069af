package ml

import (
	"reflect"
	"testing"
)

func TestFeatureVectorOrder(t *testing.T) {
	measurements := IrisMeasurements{
		SepalLength: 5.1,
		SepalWidth:  3.5,
		PetalLength: 1.4,
		PetalWidth:  0.2,
	}
	vector := measurements.FeatureVector()
	want := []float64{5.1, 3.5, 1.4, 0.2}
	if !reflect.DeepEqual(vector, want) {
		t.Fatalf("expected %v, got %v", want, vector)
	}
	if len(FeatureNames()) != len(vector) {
		t.Fatalf("feature names and vector length differ: %d vs %d", len(FeatureNames()), len(vector))
	}
}

func TestSpeciesGuideCoversAllClasses(t *testing.T) {
	guide := SpeciesGuide()
	for _, species := range ClassNames() {
		detail, ok := guide[species]
		if !ok {
			t.Fatalf("missing guide entry for %s", species)
		}
		if detail.Description == "" || detail.DistinguishingFeatures == "" {
			t.Fatalf("incomplete guide entry for %s: %+v", species, detail)
		}
	}
	if len(guide) != len(ClassNames()) {
		t.Fatalf("expected %d guide entries, got %d", len(ClassNames()), len(guide))
	}
}

func TestSpeciesNameRendering(t *testing.T) {
	if got := DisplayName("setosa"); got != "Setosa" {
		t.Fatalf("expected Setosa, got %s", got)
	}
	if got := ShoutName("versicolor"); got != "VERSICOLOR" {
		t.Fatalf("expected VERSICOLOR, got %s", got)
	}
}
