package cmd

import (

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/output"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List app instances connected to the hub",
	Long:  "List the app instances currently connected to the hub with their device id, platform, and display name.",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().String("platform", "", "Only list devices of this platform: ios, android")
}

func runDevices(cmd *cobra.Command, args []string) error {
	plat, _ := cmd.Flags().GetString("platform")
	ctx := cmd.Context()
	d, closeFn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	devices, err := d.Devices()
	if err != nil {
		return err
	}
	return output.Print(filterDevices(devices, plat))
}

func filterDevices(devices []protocol.DeviceInfo, plat string) []protocol.DeviceInfo {
	out := make([]protocol.DeviceInfo, 0, len(devices))
	for _, dev := range devices {
		if plat == "" || dev.Platform == plat {
			out = append(out, dev)
		}
	}
	return out
}
