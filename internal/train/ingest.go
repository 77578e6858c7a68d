// Package train loads knowledge into an engine: schema DDL pulled from
// the live database or a file, documentation blobs, and question→SQL
// example pairs.
package train

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/queryloom/queryloom/internal/log"
)

// Trainer is the engine capability the ingestor depends on.
// *engine.Engine satisfies it.
type Trainer interface {
	TrainDDL(ctx context.Context, ddl string) error
	TrainDocumentation(ctx context.Context, documentation string) error
	TrainExample(ctx context.Context, question, sql string) error
}

// SchemaSource supplies DDL from a live database. *database.Executor
// satisfies it.
type SchemaSource interface {
	SchemaDDL(ctx context.Context) ([]string, error)
}

// Example is one question→SQL training pair as it appears in an
// examples file.
type Example struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// Report summarizes an ingestion run. A run trains what it can:
// individual failures land in Failed without aborting the rest.
type Report struct {
	Trained int
	Skipped int
	Failed  int
}

// Ingestor feeds training material into an engine.
type Ingestor struct {
	trainer Trainer
	logger  log.Logger
}

// NewIngestor creates an ingestor around a trainer.
func NewIngestor(trainer Trainer, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{trainer: trainer, logger: logger}
}

// FromDatabase extracts CREATE TABLE statements from the source and
// trains each one.
func (in *Ingestor) FromDatabase(ctx context.Context, source SchemaSource) (Report, error) {
	statements, err := source.SchemaDDL(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("extracting schema ddl: %w", err)
	}

	var report Report
	for _, ddl := range statements {
		if err := in.trainer.TrainDDL(ctx, ddl); err != nil {
			in.logger.Warn("training ddl failed", "error", err)
			report.Failed++
			continue
		}
		report.Trained++
	}
	return report, nil
}

// DDLFile reads a SQL file, splits it on semicolons, and trains every
// CREATE or ALTER statement. Other statements (INSERTs, comments in
// statement position) are skipped.
func (in *Ingestor) DDLFile(ctx context.Context, path string) (Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("reading ddl file: %w", err)
	}

	var report Report
	for _, raw := range strings.Split(string(content), ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		up := strings.ToUpper(stmt)
		if !strings.HasPrefix(up, "CREATE") && !strings.HasPrefix(up, "ALTER") {
			report.Skipped++
			continue
		}
		if err := in.trainer.TrainDDL(ctx, stmt+";"); err != nil {
			in.logger.Warn("training ddl failed", "error", err)
			report.Failed++
			continue
		}
		report.Trained++
	}
	return report, nil
}

// DocumentationFile trains the entire file content as one
// documentation entry.
func (in *Ingestor) DocumentationFile(ctx context.Context, path string) (Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("reading documentation file: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return Report{Skipped: 1}, nil
	}
	if err := in.trainer.TrainDocumentation(ctx, text); err != nil {
		return Report{Failed: 1}, fmt.Errorf("training documentation: %w", err)
	}
	return Report{Trained: 1}, nil
}

// ExamplesFile reads a JSON array of question→SQL pairs and trains
// each complete pair. Entries missing either field are skipped, not
// errors.
func (in *Ingestor) ExamplesFile(ctx context.Context, path string) (Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("reading examples file: %w", err)
	}

	var examples []Example
	if err := json.Unmarshal(content, &examples); err != nil {
		return Report{}, fmt.Errorf("parsing examples file: %w", err)
	}

	var report Report
	for _, ex := range examples {
		if ex.Question == "" || ex.SQL == "" {
			in.logger.Warn("skipping incomplete example", "question", ex.Question)
			report.Skipped++
			continue
		}
		if err := in.trainer.TrainExample(ctx, ex.Question, ex.SQL); err != nil {
			in.logger.Warn("training example failed", "question", ex.Question, "error", err)
			report.Failed++
			continue
		}
		report.Trained++
	}
	return report, nil
}
