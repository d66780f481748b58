package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/output"
	"github.com/mj1618/mobile-cli/internal/platform"
	"github.com/mj1618/mobile-cli/internal/session"
)

// dialTimeout bounds connecting to the hub.
const dialTimeout = 5 * time.Second

// addTargetFlags registers the device selection flags.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("device", "", "Device id, e.g. ios-1 (optional when one device is connected)")
	cmd.Flags().String("platform", "", "Pick the device by platform: ios, android")
}

func getTarget(cmd *cobra.Command) (automation.Target, error) {
	device, _ := cmd.Flags().GetString("device")
	plat, _ := cmd.Flags().GetString("platform")
	if plat != "" {
		p, err := platform.ParsePlatform(plat)
		if err != nil {
			return automation.Target{}, err
		}
		plat = p
	}
	return automation.Target{DeviceID: device, Platform: plat}, nil
}

func hubURL() string {
	if u, _ := rootCmd.PersistentFlags().GetString("hub"); u != "" {
		return u
	}
	return cfg.Hub.URL()
}

// connect dials the hub as an extension client and wraps it in a driver.
// The returned function closes the connection.
func connect(ctx context.Context) (*automation.Driver, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	url := hubURL()
	client, err := session.Dial(dialCtx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (is \"mobile-cli serve\" running?)", err)
	}
	logger.Debug("connected to hub at %s", url)

	d := automation.New(client, automation.Options{
		RequestTimeout: cfg.Request.Timeout,
		ViewportTTL:    cfg.Cache.ViewportTTL,
	})
	return d, func() { client.Close() }, nil
}

// flagParams copies every flag the user set into a step parameter map,
// keyed by flag name. Unset flags are left out so step defaults apply.
func flagParams(flags *pflag.FlagSet, names ...string) map[string]interface{} {
	params := make(map[string]interface{})
	for _, name := range names {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := flags.GetBool(name)
			params[name] = v
		case "int":
			v, _ := flags.GetInt(name)
			params[name] = v
		case "float64":
			v, _ := flags.GetFloat64(name)
			params[name] = v
		default:
			params[name] = f.Value.String()
		}
	}
	return params
}

// runStep executes a single action against the hub and prints its result.
func runStep(cmd *cobra.Command, action string, params map[string]interface{}) error {
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

	result, err := d.ExecuteStep(ctx, t, action, params)
	if err != nil {
		return err
	}
	result.OK = true
	return output.Print(result)
}

// selectorArg takes the selector from --selector or the first positional
// argument.
func selectorArg(cmd *cobra.Command, args []string) string {
	sel, _ := cmd.Flags().GetString("selector")
	if sel == "" && len(args) > 0 {
		sel = args[0]
	}
	return sel
}
