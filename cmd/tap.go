package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/platform"
)

var tapCmd = &cobra.Command{
	Use:   "tap [selector]",
	Short: "Tap an element or a screen coordinate",
	Long: `Tap the first element matching a selector, or an absolute screen point.

The tap lands on the element's center, moved inside the visible screen when
the element is partly scrolled away. Elements entirely off-screen fail.

Examples:
  mobile-cli tap '#submit'
  mobile-cli tap 'Pressable:text("Sign in")'
  mobile-cli tap --at 195,422`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTap,
}

var longPressCmd = &cobra.Command{
	Use:   "long-press [selector]",
	Short: "Long-press an element",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLongPress,
}

func init() {
	rootCmd.AddCommand(tapCmd)
	tapCmd.Flags().String("selector", "", "Element selector")
	tapCmd.Flags().String("at", "", "Tap at screen coordinates x,y instead of an element")
	addTargetFlags(tapCmd)

	rootCmd.AddCommand(longPressCmd)
	longPressCmd.Flags().String("selector", "", "Element selector")
	longPressCmd.Flags().Int("duration", 800, "Hold time in milliseconds")
	addTargetFlags(longPressCmd)
}

func runTap(cmd *cobra.Command, args []string) error {
	sel := selectorArg(cmd, args)
	at, _ := cmd.Flags().GetString("at")

	params := map[string]interface{}{}
	switch {
	case sel != "" && at != "":
		return fmt.Errorf("use either a selector or --at, not both")
	case at != "":
		p, err := platform.ParsePoint(at)
		if err != nil {
			return err
		}
		params["x"], params["y"] = p.X, p.Y
	case sel != "":
		params["selector"] = sel
	default:
		return fmt.Errorf("tap needs a selector or --at x,y")
	}
	return runStep(cmd, "tap", params)
}

func runLongPress(cmd *cobra.Command, args []string) error {
	sel := selectorArg(cmd, args)
	if sel == "" {
		return fmt.Errorf("long-press needs a selector")
	}
	params := flagParams(cmd.Flags(), "duration")
	params["selector"] = sel
	return runStep(cmd, "long-press", params)
}
