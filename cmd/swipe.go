package cmd

import (
	"github.com/spf13/cobra"
)

var swipeCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Swipe in a direction",
	Long: `Swipe from an element (or the screen center) in a direction.

The swipe starts at the element's visible center and travels --distance
points, or half the screen when unset. The end point is kept on screen.

Examples:
  mobile-cli swipe --direction up
  mobile-cli swipe --direction left --selector '#carousel' --distance 300`,
	RunE: runSwipe,
}

func init() {
	rootCmd.AddCommand(swipeCmd)
	swipeCmd.Flags().String("direction", "", "Swipe direction: up, down, left, right")
	swipeCmd.Flags().String("selector", "", "Element to start on (default: screen center)")
	swipeCmd.Flags().Float64("distance", 0, "Distance in points (default: half the screen)")
	swipeCmd.Flags().Int("duration", 300, "Gesture duration in milliseconds")
	addTargetFlags(swipeCmd)
	swipeCmd.MarkFlagRequired("direction")
}

func runSwipe(cmd *cobra.Command, args []string) error {
	return runStep(cmd, "swipe", flagParams(cmd.Flags(), "direction", "selector", "distance", "duration"))
}
