package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/render"
)

// Version is the release string, overwritten at build time with
//
//	-ldflags "-X github.com/derickschaefer/tally/cmd.Version=v0.2.0"
var Version = "v0.1.0"

// BuildTime is optionally injected the same way as Version.
var BuildTime = ""

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	BuildTime string `json:"build_time,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Reachable *bool  `json:"backend_reachable,omitempty"`
	Problem   string `json:"backend_error,omitempty"`
}

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tally version, optionally checking the backend",
	Long: `Prints the tally version and build metadata. With --check it also asks the
configured analytics backend for its /health probe; an unreachable backend is
reported but is not an error.`,
	Example: `  tally version
  tally version --check
  tally version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			BuildTime: BuildTime,
		}

		if versionCheck {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			info.Backend = deps.Client.BaseURL()
			err = deps.Client.Health(cmd.Context())
			ok := err == nil
			info.Reachable = &ok
			if err != nil {
				info.Problem = notice(err)
			}
		}

		out := cmd.OutOrStdout()
		if render.Machine(globalFlags.Format) {
			return json.NewEncoder(out).Encode(info)
		}

		fmt.Fprintf(out, "tally    %s\n", info.Version)
		fmt.Fprintf(out, "go       %s (%s)\n", info.GoVersion, info.Platform)
		if info.BuildTime != "" {
			fmt.Fprintf(out, "built    %s\n", info.BuildTime)
		}
		if info.Reachable != nil {
			status := "ok"
			if !*info.Reachable {
				status = "unreachable: " + info.Problem
			}
			fmt.Fprintf(out, "backend  %s %s\n", info.Backend, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "also probe the configured backend's /health endpoint")
}
