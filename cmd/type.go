package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var typeCmd = &cobra.Command{
	Use:   "type [text]",
	Short: "Type text into the focused input",
	Long: `Type text on the device. With --selector the element is tapped first so
it takes focus.

Examples:
  mobile-cli type --selector '#email' "me@example.com"
  mobile-cli type --text "hello"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runType,
}

func init() {
	rootCmd.AddCommand(typeCmd)
	typeCmd.Flags().String("text", "", "Text to type")
	typeCmd.Flags().String("selector", "", "Element to tap before typing")
	addTargetFlags(typeCmd)
}

func runType(cmd *cobra.Command, args []string) error {
	params := flagParams(cmd.Flags(), "text", "selector")
	if len(args) > 0 {
		if _, ok := params["text"]; ok {
			return fmt.Errorf("text given both as argument and --text")
		}
		params["text"] = args[0]
	}
	if _, ok := params["text"]; !ok {
		return fmt.Errorf("type needs text")
	}
	return runStep(cmd, "type", params)
}
