package cmd

import (

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/output"
)

var viewportCmd = &cobra.Command{
	Use:   "viewport",
	Short: "Print the device's visible screen size",
	RunE:  runViewport,
}

func init() {
	rootCmd.AddCommand(viewportCmd)
	addTargetFlags(viewportCmd)
}

func runViewport(cmd *cobra.Command, args []string) error {
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

	vp, err := d.Viewport(t)
	if err != nil {
		return err
	}
	return output.Print(vp)
}
