package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        algorithm VARCHAR(50),
        accuracy REAL,
        macro_precision REAL,
        macro_recall REAL,
        train_samples INTEGER,
        test_samples INTEGER,
        iterations INTEGER,
        converged INTEGER DEFAULT 0,
        artifact_path TEXT,
        trained_at DATETIME
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// TrainingRun is one row of the training audit log.
type TrainingRun struct {
	ModelName      string    `json:"model_name"`
	Algorithm      string    `json:"algorithm"`
	Accuracy       float64   `json:"accuracy"`
	MacroPrecision float64   `json:"macro_precision"`
	MacroRecall    float64   `json:"macro_recall"`
	TrainSamples   int       `json:"train_samples"`
	TestSamples    int       `json:"test_samples"`
	Iterations     int       `json:"iterations"`
	Converged      bool      `json:"converged"`
	ArtifactPath   string    `json:"artifact_path"`
	TrainedAt      time.Time `json:"trained_at"`
}

func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_runs (
            model_name, algorithm, accuracy, macro_precision, macro_recall,
            train_samples, test_samples, iterations, converged, artifact_path, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ModelName,
		run.Algorithm,
		run.Accuracy,
		run.MacroPrecision,
		run.MacroRecall,
		run.TrainSamples,
		run.TestSamples,
		run.Iterations,
		run.Converged,
		run.ArtifactPath,
		run.TrainedAt,
	)
	return err
}

func LoadTrainingRuns(limit int) ([]TrainingRun, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.Query(`
        SELECT model_name, algorithm, accuracy, macro_precision, macro_recall,
               train_samples, test_samples, iterations, converged, artifact_path, trained_at
        FROM training_runs
        ORDER BY trained_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		if err := rows.Scan(
			&run.ModelName,
			&run.Algorithm,
			&run.Accuracy,
			&run.MacroPrecision,
			&run.MacroRecall,
			&run.TrainSamples,
			&run.TestSamples,
			&run.Iterations,
			&run.Converged,
			&run.ArtifactPath,
			&run.TrainedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
