// Package app provides the cobra commands of the cms-mirror binary.
package app

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build information, set with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree with
// its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "cms-mirror",
		Short:         "Mirror an upstream CMS into PostgreSQL",
		Long:          `cms-mirror keeps a local PostgreSQL copy of an upstream CMS REST API and serves it over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("config", "", "Path to an optional YAML configuration file")

	root.AddCommand(
		newServeCmd(v, modeAll),
		newServeCmd(v, modeAPI),
		newServeCmd(v, modeWorker),
		newSyncCmd(v),
		newMigrateCmd(v),
		newHashPasswordCmd(),
		newVersionCmd(),
	)
	return root
}

// versionInfo is printed by the version command
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version:   Version,
				Commit:    Commit,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			if format == "json" {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("format version info: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cms-mirror %s (commit %s, %s, %s)\n",
				info.Version, info.Commit, info.GoVersion, info.Platform)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
