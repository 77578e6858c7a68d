package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/queryloom/queryloom/internal/config"
	"github.com/queryloom/queryloom/internal/database"
)

var askExecute bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Generate SQL for a natural-language question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askExecute, "execute", false, "run the generated statement and print the rows")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()
	factory := newEngineFactory(cfg, logger)
	eng, err := factory(ctx, "")
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	sql, err := eng.GenerateSQL(ctx, question)
	if err != nil {
		return fmt.Errorf("generating SQL: %w", err)
	}
	if sql == "" {
		fmt.Fprintln(os.Stderr, "No SQL could be generated for this question.")
		return nil
	}

	fmt.Println(sql)

	if !askExecute {
		return nil
	}

	executor := database.NewExecutor(cfg.PostgresDSN(), logger)
	result, err := executor.Execute(ctx, sql)
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering result: %w", err)
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "%d row(s)\n", len(result.Rows))
	return nil
}
