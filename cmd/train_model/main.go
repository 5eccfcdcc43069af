package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"irisclass/db"
	"irisclass/ml"
)

func main() {
	modelPath := flag.String("model_path", "./models/iris.json", "model artifact output path")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out fraction per class")
	seed := flag.Int64("seed", 42, "shuffle seed for the stratified split")
	maxIter := flag.Int("max_iter", 200, "gradient descent iteration cap")
	learningRate := flag.Float64("learning_rate", 0.5, "gradient descent step size")
	l2 := flag.Float64("l2", 0.01, "L2 penalty on the weights")
	dbPath := flag.String("db", "./iris.db", "training log database, empty to skip")
	flag.Parse()

	dataset, err := ml.LoadIrisDataset()
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	counts := dataset.ClassCounts()
	fmt.Printf("Loaded %d samples, %d features each\n", len(dataset.Labels), len(ml.FeatureNames()))
	fmt.Println("Dataset distribution:")
	for i, name := range ml.ClassNames() {
		fmt.Printf("  %s: %d samples\n", ml.DisplayName(name), counts[i])
	}

	split, err := ml.StratifiedSplit(dataset, *testRatio, *seed)
	if err != nil {
		log.Fatalf("failed to split dataset: %v", err)
	}
	fmt.Printf("Training samples: %d (%.0f%%)\n", len(split.TrainLabels), (1-*testRatio)*100)
	fmt.Printf("Testing samples: %d (%.0f%%)\n", len(split.TestLabels), *testRatio*100)

	model := ml.NewLogisticRegression()
	opts := ml.TrainOptions{
		MaxIter:      *maxIter,
		LearningRate: *learningRate,
		L2Penalty:    *l2,
	}
	if err := model.Train(split.TrainFeatures, split.TrainLabels, opts); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}
	meta := model.Meta()
	fmt.Printf("Training finished after %d iterations (converged: %v)\n", meta.Iterations, meta.Converged)

	report, err := ml.Evaluate(model, split.TestFeatures, split.TestLabels)
	if err != nil {
		log.Fatalf("failed to evaluate model: %v", err)
	}
	printReport(report)

	model.RecordEvaluation(report.Accuracy, len(split.TestLabels))

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := model.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	fmt.Printf("model saved to %s\n", *modelPath)

	if *dbPath != "" {
		recordRun(*dbPath, *modelPath, model.Meta(), report)
	}
}

func printReport(report *ml.EvaluationReport) {
	fmt.Printf("Model accuracy: %.1f%%\n", report.Accuracy*100)
	switch {
	case report.Accuracy >= 0.95:
		fmt.Println("  Excellent! The model performs very well.")
	case report.Accuracy >= 0.90:
		fmt.Println("  Good performance! The model is reliable.")
	default:
		fmt.Println("  Moderate performance. Consider more training data.")
	}

	fmt.Println("Per-class metrics:")
	for _, class := range report.PerClass {
		fmt.Printf("  %s: precision %.2f, recall %.2f, f1 %.2f (%d samples)\n",
			ml.DisplayName(class.Species), class.Precision, class.Recall, class.F1, class.Support)
	}

	fmt.Println("Prediction results breakdown:")
	classes := ml.ClassNames()
	for i, actual := range classes {
		for j, predicted := range classes {
			count := report.Confusion[i][j]
			if count == 0 {
				continue
			}
			if i == j {
				fmt.Printf("  %s: %d correctly identified\n", ml.DisplayName(actual), count)
			} else {
				fmt.Printf("  %s: %d misclassified as %s\n", ml.DisplayName(actual), count, predicted)
			}
		}
	}
}

func recordRun(dbPath, modelPath string, meta ml.Artifact, report *ml.EvaluationReport) {
	if err := db.InitDB(dbPath); err != nil {
		log.Printf("failed to open training log %s: %v", dbPath, err)
		return
	}
	defer db.Close()

	run := db.TrainingRun{
		ModelName:      "iris",
		Algorithm:      meta.Algorithm,
		Accuracy:       report.Accuracy,
		MacroPrecision: report.MacroPrecision,
		MacroRecall:    report.MacroRecall,
		TrainSamples:   meta.TrainSamples,
		TestSamples:    meta.TestSamples,
		Iterations:     meta.Iterations,
		Converged:      meta.Converged,
		ArtifactPath:   modelPath,
		TrainedAt:      meta.TrainedAt,
	}
	if err := db.SaveTrainingRun(run); err != nil {
		log.Printf("failed to record training run: %v", err)
		return
	}
	fmt.Printf("training run recorded in %s\n", dbPath)
}
