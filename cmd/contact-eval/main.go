package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for invalid
// input, 3 for missing files, 4 for unparseable files, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsValidation(err):
		return 2
	case errors.IsNotFound(err):
		return 3
	case errors.IsParse(err):
		return 4
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contact-eval STRUCTURE [PREDICTIONS]",
		Short: "Evaluate predicted residue contacts against a protein structure",
		Long: `contact-eval lists the residue contacts of a structure file, or scores a
predicted contact map against it with top-L, L/2 and L/5 precision per
sequence separation class.

  contact-eval 1abc.pdb               # same as: contact-eval contacts 1abc.pdb
  contact-eval 1abc.pdb 1abc.rr       # same as: contact-eval evaluate 1abc.pdb 1abc.rr
  contact-eval batch 1abc.pdb *.rr    # one statistics line per file plus the mean`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runContacts(cmd, args)
			}
			return runEvaluate(cmd, args)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")

	// Evaluation flags
	pf := rootCmd.PersistentFlags()
	pf.Float64("cutoff", 0, "contact distance cutoff in Angstrom (0 = unset)")
	pf.String("atom", "CA", "atom used for residue positions (CA, CB)")
	pf.String("range", "6", "separation range (all, short, medium, long, or a minimum separation)")
	pf.String("outfmt", "list", "output shape (list, dist, stat)")
	pf.Float64("cutoff-all", 0, "drop predictions with confidence <= this value")
	pf.Float64("cutoff-short", 0, "confidence cutoff for separations <= 12")
	pf.Float64("cutoff-medium", 0, "confidence cutoff for separations in 12..24")
	pf.Float64("cutoff-long", 0, "confidence cutoff for separations >= 24")
	pf.String("missing", "drop", "predictions without a true distance (drop, miss)")
	pf.String("tie-break", "descending", "order of equal confidence predictions (descending, ascending)")

	rootCmd.AddCommand(
		contactsCmd(),
		evaluateCmd(),
		batchCmd(),
		watchCmd(),
		eventsCmd(),
		versionCmd(),
	)

	return rootCmd
}

func contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts STRUCTURE",
		Short: "List the residue contacts of a structure",
		Long: `List residue pairs of the first chain of the first model whose distance
is below --cutoff and whose separation falls in --range. Use --outfmt dist
to include distances.`,
		Args: cobra.ExactArgs(1),
		RunE: runContacts,
	}
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate STRUCTURE PREDICTIONS",
		Short: "Score a predicted contact map against a structure",
		Long: `Score a prediction file of "i j confidence" or "i j lower upper confidence"
lines. --outfmt stat prints the twelve precision values (header on
stderr); list and dist print the ranked predictions.`,
		Args: cobra.ExactArgs(2),
		RunE: runEvaluate,
	}
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch STRUCTURE PREDICTIONS...",
		Short: "Score several predicted contact maps against one structure",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runBatch,
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch STRUCTURE DIR",
		Short: "Re-score prediction files in a directory as they change",
		Args:  cobra.ExactArgs(2),
		RunE:  runWatch,
	}

	cmd.Flags().Duration("delay", 0, "debounce delay for file events (overrides config)")
	cmd.Flags().StringSlice("ignore", nil, "extra gitignore-style patterns")

	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show, replay or follow evaluation events",
		Long: `Print the events recorded in the event log. --replay publishes them to
the kafka bus instead, and --follow prints events published by other
processes as they arrive. Both need bus.type kafka.`,
		Args:  cobra.NoArgs,
		RunE:  runEvents,
	}

	cmd.Flags().String("log", "", "event log path (default: bus.event_log from config)")
	cmd.Flags().Duration("since", 0, "only events newer than this (0 = all)")
	cmd.Flags().Int("limit", 0, "show only the newest N events (0 = all)")
	cmd.Flags().Bool("replay", false, "publish the logged events to the kafka bus")
	cmd.Flags().Bool("follow", false, "print events from the kafka bus until interrupted")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "contact-eval %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
