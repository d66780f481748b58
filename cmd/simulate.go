package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/agent"
	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/output"
	"github.com/mj1618/mobile-cli/internal/platform"
)

// reconnectDelay is how long simulate waits before redialing a lost hub.
const reconnectDelay = time.Second

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Connect a simulated app backed by a tree file",
	Long: `Register with the hub as an app whose UI is read from a YAML or JSON tree
document. The file is re-read on every request, so editing it changes what
the hub sees. Input is recorded instead of injected and printed on exit.

The document holds the screen size and the component tree:

  viewport: { width: 390, height: 844 }
  tree:
    type: View
    children:
      - type: Pressable
        testID: submit
        capabilities: { press: true }
        measure: { x: 0, y: 0, width: 200, height: 44, pageX: 95, pageY: 600 }

Examples:
  mobile-cli simulate --tree login.yaml
  mobile-cli simulate --tree login.yaml --platform android --name "Pixel 8"`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("tree", "", "Tree document to serve (YAML or JSON)")
	simulateCmd.Flags().String("backend", "file", "Platform backend to read and inject with")
	simulateCmd.Flags().String("platform", "ios", "Platform to register as: ios, android")
	simulateCmd.Flags().String("name", "", "Device display name")
	simulateCmd.MarkFlagRequired("tree")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	treeFile, _ := cmd.Flags().GetString("tree")
	backend, _ := cmd.Flags().GetString("backend")
	plat, _ := cmd.Flags().GetString("platform")
	name, _ := cmd.Flags().GetString("name")

	plat, err := platform.ParsePlatform(plat)
	if err != nil {
		return err
	}
	if _, err := platform.LoadTreeDocument(treeFile); err != nil {
		return err
	}
	provider, err := platform.NewProvider(backend, platform.ProviderOptions{TreeFile: treeFile})
	if err != nil {
		return err
	}

	a := agent.New(provider.Reader, provider.Inputter, agent.Options{Platform: plat, DeviceName: name})
	ctx := cmd.Context()
	url := hubURL()
	for ctx.Err() == nil {
		err := a.Run(ctx, url)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			err = errors.New("hub closed the connection")
		}
		logger.Warn("simulate: %v, reconnecting in %s", err, reconnectDelay)
		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
		}
	}

	if rec, ok := provider.Inputter.(interface{ Actions() []platform.Action }); ok {
		actions := rec.Actions()
		if actions == nil {
			actions = []platform.Action{}
		}
		return output.Print(actions)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "simulate stopped")
	return nil
}
