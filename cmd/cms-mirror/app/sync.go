package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/custodia-labs/cms-mirror/internal/config"
	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// errRunFailed makes the process exit non-zero without repeating step errors
var errRunFailed = errors.New("sync run failed")

func newSyncCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [all|categories|tags|posts|media|media-library]",
		Short: "Run one guarded sync and exit",
		Long: `Run one sync in the foreground. Without an argument every kind runs in
dependency order. The exit code is non-zero when any step fails or another
instance holds the sync lock.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"all", "categories", "tags", "posts", "media", "media-library"},
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlag(config.KeySyncRunPolicy, cmd.Flags().Lookup("policy"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			target, err := domain.ParseSyncTarget(name)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := bootstrap(ctx, v, configPath(cmd))
			if err != nil {
				return err
			}
			defer st.Close()

			result, runErr := st.newScheduler(nil).Run(ctx, target)
			if result == nil {
				return runErr
			}

			format, _ := cmd.Flags().GetString("format")
			if err := printRunResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			if runErr != nil || !result.Success() {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().String("policy", string(domain.RunPolicyAbort), "Failure policy: abort or continue")
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// printRunResult writes a per-step summary of a finished run
func printRunResult(w io.Writer, result *domain.RunResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s (policy %s)\n", result.RunID, result.Policy)
	fmt.Fprintln(tw, "KIND\tSTATUS\tSYNCED\tSKIPPED\tSECONDS\tERROR")
	for _, step := range result.Steps {
		status := "ok"
		switch {
		case !step.Ran:
			status = "not run"
		case !step.Success:
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%s\n",
			step.Kind, status, step.Synced, step.Skipped, step.Duration, step.Error)
	}
	return tw.Flush()
}
