package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/pairwise/internal/export"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/store"
)

var (
	recordsMode      string
	recordsEvaluator string
	recordsOut       string
	recordsStore     string
)

// recordsCmd represents the records command
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and export stored evaluation records",
	Long: `Records reads the evaluation lists persisted by 'pairwise serve'.

Hybrid records are kept per evaluator; random-pairing records share one list.
Only durable stores (disk, layered, redis, mongo) can be read back.`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored evaluations",
	Long: `List prints one line per stored evaluation.

Example:
  pairwise records list --mode hybrid --evaluator 3
  pairwise records list --mode random --store redis`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecordStore(cmd, func(ctx context.Context, st store.Store, mode model.Mode) error {
			return listRecords(ctx, cmd.OutOrStdout(), st, mode, recordsEvaluator)
		})
	},
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write one export file per stored evaluation",
	Long: `Export writes every stored evaluation as the same JSON file the evaluator
downloaded on submission.

Example:
  pairwise records export --mode hybrid --evaluator 3 --out ./exports`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecordStore(cmd, func(ctx context.Context, st store.Store, mode model.Mode) error {
			n, err := exportRecords(ctx, st, mode, recordsEvaluator, recordsOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Exported %d evaluations to %s\n", n, recordsOut)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsExportCmd)

	recordsCmd.PersistentFlags().StringVar(&recordsMode, "mode", "", "survey variant (default: server.mode)")
	recordsCmd.PersistentFlags().StringVar(&recordsEvaluator, "evaluator", "", "evaluator ID (hybrid records are per evaluator)")
	recordsCmd.PersistentFlags().StringVar(&recordsStore, "store", "", "record store (default: store.backend)")
	recordsExportCmd.Flags().StringVar(&recordsOut, "out", "exports", "output directory")
}

func withRecordStore(cmd *cobra.Command, fn func(context.Context, store.Store, model.Mode) error) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if recordsStore != "" {
		cfg.Store.Backend = recordsStore
	}
	mode := cfg.Server.Mode
	if recordsMode != "" {
		mode = model.Mode(recordsMode)
	}
	if !mode.Valid() {
		return fmt.Errorf("unknown mode: %s (supported: hybrid, random)", mode)
	}
	if mode == model.ModeHybrid && recordsEvaluator == "" {
		return errors.New("--evaluator is required for hybrid records")
	}
	if !store.Durable(cfg.Store.Backend) {
		return fmt.Errorf("store %q does not persist records between runs", cfg.Store.Backend)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	st, err := store.New(connectCtx, cfg.Store)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	return fn(ctx, st, mode)
}

func listRecords(ctx context.Context, w io.Writer, st store.Store, mode model.Mode, evaluatorID string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	switch mode {
	case model.ModeRandom:
		records, err := store.NewLedger[model.Judgment](st).List(ctx, store.RandomKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "EVALUATION\tEVALUATOR\tPAPER\tA\tB\tTIME")
		for _, j := range records {
			if evaluatorID != "" && j.EvaluatorID != evaluatorID {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				j.EvaluationID, j.EvaluatorID, j.PaperID, j.CandidateA.Type, j.CandidateB.Type, j.Timestamp.Format(time.RFC3339))
		}

	default:
		records, err := store.NewLedger[model.Evaluation](st).List(ctx, store.HybridKey(evaluatorID))
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "EVALUATION\tSAMPLE\tPAPER\tTYPE\tTIME")
		for _, e := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.EvaluationID, e.EvaluatorSampleID, e.PaperID, e.AssignmentType.OrUnknown(), e.Timestamp.Format(time.RFC3339))
		}
	}

	return tw.Flush()
}

// exportRecords writes every matching record to dir and returns how many were written.
// File names match the ones used for browser downloads, stamped with the record time.
func exportRecords(ctx context.Context, st store.Store, mode model.Mode, evaluatorID, dir string) (int, error) {
	n := 0

	switch mode {
	case model.ModeRandom:
		records, err := store.NewLedger[model.Judgment](st).List(ctx, store.RandomKey)
		if err != nil {
			return 0, err
		}
		for _, j := range records {
			if evaluatorID != "" && j.EvaluatorID != evaluatorID {
				continue
			}
			name := export.RandomFilename(j.EvaluatorID, j.EvaluationID)
			if _, err := export.WriteFile(dir, name, export.New(j.EvaluatorID, j, j.Timestamp)); err != nil {
				return n, err
			}
			n++
		}

	default:
		records, err := store.NewLedger[model.Evaluation](st).List(ctx, store.HybridKey(evaluatorID))
		if err != nil {
			return 0, err
		}
		for _, e := range records {
			name := export.HybridFilename(e.EvaluatorID, e.EvaluatorSampleID, e.Timestamp)
			if _, err := export.WriteFile(dir, name, export.New(e.EvaluatorID, e, e.Timestamp)); err != nil {
				return n, err
			}
			n++
		}
	}

	return n, nil
}
