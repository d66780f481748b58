package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait [selector]",
	Short: "Wait for an element to appear or disappear",
	Long: `Poll the app until a selector matches, or with --gone until it stops
matching. Exits non-zero on timeout.

Examples:
  mobile-cli wait '#home' --timeout 10
  mobile-cli wait 'ActivityIndicator' --gone`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().String("selector", "", "Element selector")
	waitCmd.Flags().Bool("gone", false, "Wait until the selector no longer matches")
	waitCmd.Flags().Float64("timeout", 30, "Max seconds to wait")
	waitCmd.Flags().Int("interval", 500, "Polling interval in milliseconds")
	addTargetFlags(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	sel := selectorArg(cmd, args)
	if sel == "" {
		return fmt.Errorf("wait needs a selector")
	}
	params := flagParams(cmd.Flags(), "gone", "timeout", "interval")
	params["selector"] = sel
	return runStep(cmd, "wait", params)
}
