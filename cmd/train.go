package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queryloom/queryloom/internal/config"
	"github.com/queryloom/queryloom/internal/database"
	"github.com/queryloom/queryloom/internal/engine"
	"github.com/queryloom/queryloom/internal/train"
)

var (
	trainFromDB  bool
	trainDDLFile string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Load training data into the knowledge store",
}

var trainDDLCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Train with DDL statements from the database or a file",
	RunE:  runTrainDDL,
}

var trainDocsCmd = &cobra.Command{
	Use:   "docs FILE",
	Short: "Train with a documentation file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrainDocs,
}

var trainExamplesCmd = &cobra.Command{
	Use:   "examples FILE",
	Short: "Train with a JSON file of question-SQL pairs",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrainExamples,
}

var trainStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show training data statistics",
	RunE:  runTrainStats,
}

func init() {
	trainDDLCmd.Flags().BoolVar(&trainFromDB, "from-db", false, "extract DDL from the connected database")
	trainDDLCmd.Flags().StringVar(&trainDDLFile, "file", "", "path to a SQL file with DDL statements")

	trainCmd.AddCommand(trainDDLCmd, trainDocsCmd, trainExamplesCmd, trainStatsCmd)
	rootCmd.AddCommand(trainCmd)
}

// trainSetup loads config and builds the engine and ingestor shared by
// the train subcommands.
func trainSetup(cmd *cobra.Command) (*config.Config, *engine.Engine, *train.Ingestor, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	factory := newEngineFactory(cfg, logger)
	eng, err := factory(cmd.Context(), "")
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, eng, train.NewIngestor(eng, logger), nil
}

func printReport(report train.Report) {
	fmt.Printf("Trained: %d", report.Trained)
	if report.Skipped > 0 {
		fmt.Printf(", skipped: %d", report.Skipped)
	}
	if report.Failed > 0 {
		fmt.Printf(", failed: %d", report.Failed)
	}
	fmt.Println()
}

func runTrainDDL(cmd *cobra.Command, _ []string) error {
	cfg, _, ingestor, err := trainSetup(cmd)
	if err != nil {
		return err
	}

	switch {
	case trainFromDB:
		executor := database.NewExecutor(cfg.PostgresDSN(), logger)
		if !executor.Probe(cmd.Context()) {
			return fmt.Errorf("cannot connect to database %q", cfg.PostgresDBName)
		}
		report, err := ingestor.FromDatabase(cmd.Context(), executor)
		if err != nil {
			return err
		}
		printReport(report)
	case trainDDLFile != "":
		report, err := ingestor.DDLFile(cmd.Context(), trainDDLFile)
		if err != nil {
			return err
		}
		printReport(report)
	default:
		return fmt.Errorf("specify --from-db or --file")
	}
	return nil
}

func runTrainDocs(cmd *cobra.Command, args []string) error {
	_, _, ingestor, err := trainSetup(cmd)
	if err != nil {
		return err
	}
	report, err := ingestor.DocumentationFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func runTrainExamples(cmd *cobra.Command, args []string) error {
	_, _, ingestor, err := trainSetup(cmd)
	if err != nil {
		return err
	}
	report, err := ingestor.ExamplesFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func runTrainStats(cmd *cobra.Command, _ []string) error {
	_, eng, _, err := trainSetup(cmd)
	if err != nil {
		return err
	}

	counts := eng.TrainingDataCount()
	fmt.Println("Training data:")
	fmt.Printf("  DDL statements:     %d\n", counts.DDL)
	fmt.Printf("  Documentation:      %d\n", counts.Documentation)
	fmt.Printf("  Question-SQL pairs: %d\n", counts.Examples)
	return nil
}
