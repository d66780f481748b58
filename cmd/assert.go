package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/output"
)

var assertCmd = &cobra.Command{
	Use:   "assert [selector]",
	Short: "Assert an element's state",
	Long: `Check that an element exists (or not) and has the expected text,
capabilities, or match count. Prints the result and exits non-zero when the
assertion fails. With --timeout the check is retried until it passes.

Examples:
  mobile-cli assert '#welcome' --text-contains "Hello"
  mobile-cli assert '#submit' --pressable
  mobile-cli assert 'ListItem' --count 3
  mobile-cli assert '#error' --gone --timeout 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssert,
}

func init() {
	rootCmd.AddCommand(assertCmd)
	assertCmd.Flags().String("selector", "", "Element selector")
	assertCmd.Flags().Bool("gone", false, "Assert nothing matches")
	assertCmd.Flags().String("text", "", "Assert the element's text equals this")
	assertCmd.Flags().String("text-contains", "", "Assert the element's text contains this")
	assertCmd.Flags().Bool("pressable", false, "Assert the element has a press handler")
	assertCmd.Flags().Bool("scrollable", false, "Assert the element can scroll")
	assertCmd.Flags().Int("count", -1, "Assert the number of matches")
	assertCmd.Flags().Float64("timeout", 0, "Retry for up to N seconds")
	assertCmd.Flags().Int("interval", 500, "Retry interval in milliseconds")
	addTargetFlags(assertCmd)
}

// assertParams builds assert options from the flags the user set.
func assertParams(cmd *cobra.Command, args []string) (automation.AssertOptions, error) {
	sel := selectorArg(cmd, args)
	if sel == "" {
		return automation.AssertOptions{}, fmt.Errorf("assert needs a selector")
	}
	params := flagParams(cmd.Flags(), "gone", "text", "text-contains", "pressable", "scrollable", "count", "timeout", "interval")
	params["selector"] = sel
	return automation.AssertOptionsFromParams(params), nil
}

func runAssert(cmd *cobra.Command, args []string) error {
	opts, err := assertParams(cmd, args)
	if err != nil {
		return err
	}
	t, err := getTarget(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	d, closeFn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := d.Assert(ctx, t, opts)
	if err != nil {
		return err
	}
	if err := output.Print(res); err != nil {
		return err
	}
	if !res.Pass {
		return fmt.Errorf("assertion failed: %s", res.Error)
	}
	return nil
}
