package ml

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SpeciesDetail describes one iris species for the reference guide.
// The values are fixed botanical reference data, not derived from the model.
type SpeciesDetail struct {
	Description            string `json:"description"`
	TypicalSepalLength     string `json:"typical_sepal_length"`
	TypicalSepalWidth      string `json:"typical_sepal_width"`
	TypicalPetalLength     string `json:"typical_petal_length"`
	TypicalPetalWidth      string `json:"typical_petal_width"`
	DistinguishingFeatures string `json:"distinguishing_features"`
}

// ClassNames returns the class labels in the exact order the model emits
// probabilities. The artifact stores a copy that is checked at load time.
func ClassNames() []string {
	return []string{"setosa", "versicolor", "virginica"}
}

func SpeciesGuide() map[string]SpeciesDetail {
	return map[string]SpeciesDetail{
		"setosa": {
			Description:            "Small, delicate flowers with distinctive features",
			TypicalSepalLength:     "4.5-5.5 cm",
			TypicalSepalWidth:      "3.0-4.0 cm",
			TypicalPetalLength:     "1.0-2.0 cm",
			TypicalPetalWidth:      "0.1-0.5 cm",
			DistinguishingFeatures: "Very short petals, wide sepals, compact flower",
		},
		"versicolor": {
			Description:            "Medium-sized flowers with balanced proportions",
			TypicalSepalLength:     "5.5-6.5 cm",
			TypicalSepalWidth:      "2.5-3.5 cm",
			TypicalPetalLength:     "3.5-5.0 cm",
			TypicalPetalWidth:      "1.0-1.5 cm",
			DistinguishingFeatures: "Moderate size, balanced petal-to-sepal ratio",
		},
		"virginica": {
			Description:            "Large, elegant flowers with long petals",
			TypicalSepalLength:     "6.0-8.0 cm",
			TypicalSepalWidth:      "2.5-3.5 cm",
			TypicalPetalLength:     "5.0-7.0 cm",
			TypicalPetalWidth:      "1.5-2.5 cm",
			DistinguishingFeatures: "Long petals, large overall size, narrow sepals",
		},
	}
}

var (
	titleCaser = cases.Title(language.English)
	upperCaser = cases.Upper(language.English)
)

// DisplayName renders a species label for human-facing output, e.g. "Setosa".
func DisplayName(species string) string {
	return titleCaser.String(species)
}

// ShoutName renders a species label in caps for interpretation strings.
func ShoutName(species string) string {
	return upperCaser.String(species)
}
