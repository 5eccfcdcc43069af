package ml

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

//go:embed iris.csv
var irisCSV []byte

// Dataset holds labeled samples with labels encoded as indexes into
// ClassNames.
type Dataset struct {
	Features [][]float64
	Labels   []int
}

// LoadIrisDataset parses the bundled iris measurements. The CSV ships
// inside the binary, so the trainer needs no data files on disk.
func LoadIrisDataset() (*Dataset, error) {
	return parseDataset(irisCSV)
}

func parseDataset(raw []byte) (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("dataset has no data rows")
	}

	wantColumns := len(FeatureNames()) + 1
	header := records[0]
	if len(header) != wantColumns {
		return nil, fmt.Errorf("dataset header has %d columns, want %d", len(header), wantColumns)
	}
	for i, name := range FeatureNames() {
		if header[i] != name {
			return nil, fmt.Errorf("dataset column %d is %q, want %q", i, header[i], name)
		}
	}

	classIndex := make(map[string]int, len(ClassNames()))
	for i, name := range ClassNames() {
		classIndex[name] = i
	}

	dataset := &Dataset{
		Features: make([][]float64, 0, len(records)-1),
		Labels:   make([]int, 0, len(records)-1),
	}
	for row, record := range records[1:] {
		if len(record) != wantColumns {
			return nil, fmt.Errorf("dataset row %d has %d columns, want %d", row+1, len(record), wantColumns)
		}
		vector := make([]float64, wantColumns-1)
		for i := 0; i < wantColumns-1; i++ {
			value, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset row %d column %q: %w", row+1, header[i], err)
			}
			if value <= 0 {
				return nil, fmt.Errorf("dataset row %d column %q: value %v is not positive", row+1, header[i], value)
			}
			vector[i] = value
		}
		label, ok := classIndex[record[wantColumns-1]]
		if !ok {
			return nil, fmt.Errorf("dataset row %d has unknown species %q", row+1, record[wantColumns-1])
		}
		dataset.Features = append(dataset.Features, vector)
		dataset.Labels = append(dataset.Labels, label)
	}

	return dataset, nil
}

// ClassCounts returns how many samples each class has, indexed like
// ClassNames.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, len(ClassNames()))
	for _, label := range d.Labels {
		counts[label]++
	}
	return counts
}

// Split holds a train/test partition of a dataset.
type Split struct {
	TrainFeatures [][]float64
	TrainLabels   []int
	TestFeatures  [][]float64
	TestLabels    []int
}

// StratifiedSplit shuffles each class independently and carves off
// testRatio of it, so train and test keep the class balance of the full
// set. The same seed always produces the same partition.
func StratifiedSplit(d *Dataset, testRatio float64, seed int64) (*Split, error) {
	if d == nil || len(d.Features) == 0 {
		return nil, errors.New("dataset is empty")
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, fmt.Errorf("test ratio %v is out of range (0, 1)", testRatio)
	}

	byClass := make([][]int, len(ClassNames()))
	for i, label := range d.Labels {
		byClass[label] = append(byClass[label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	split := &Split{}
	for _, indexes := range byClass {
		if len(indexes) == 0 {
			continue
		}
		rng.Shuffle(len(indexes), func(i, j int) {
			indexes[i], indexes[j] = indexes[j], indexes[i]
		})
		testCount := int(math.Round(float64(len(indexes)) * testRatio))
		if testCount == 0 {
			testCount = 1
		}
		if testCount >= len(indexes) {
			testCount = len(indexes) - 1
		}
		for _, idx := range indexes[:testCount] {
			split.TestFeatures = append(split.TestFeatures, d.Features[idx])
			split.TestLabels = append(split.TestLabels, d.Labels[idx])
		}
		for _, idx := range indexes[testCount:] {
			split.TrainFeatures = append(split.TrainFeatures, d.Features[idx])
			split.TrainLabels = append(split.TrainLabels, d.Labels[idx])
		}
	}

	return split, nil
}
