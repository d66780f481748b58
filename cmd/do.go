package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/output"
)

var doCmd = &cobra.Command{
	Use:   "do",
	Short: "Execute multiple actions in a batch",
	Long: `Execute a sequence of actions from a YAML list on stdin (or --file).

Each step is an action name with its parameters as a map. Steps execute
sequentially over one hub connection, and by default execution stops on the
first error. A step may carry its own device or platform.

Supported step types: tap, long-press, swipe, type, wait, assert, sleep

Example:
  mobile-cli do <<'EOF'
  - tap: { selector: "#email" }
  - type: { text: "me@example.com" }
  - tap: { selector: "#submit" }
  - wait: { selector: "#home", timeout: 10 }
  - assert: { selector: "#welcome", text-contains: "Hello" }
  EOF`,
	RunE: runDo,
}

func init() {
	rootCmd.AddCommand(doCmd)
	doCmd.Flags().String("file", "", "Read steps from this YAML file instead of stdin")
	doCmd.Flags().Bool("stop-on-error", true, "Stop execution on first error")
	addTargetFlags(doCmd)
}

func readSteps(cmd *cobra.Command) ([]automation.Step, error) {
	path, _ := cmd.Flags().GetString("file")
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no steps provided on stdin, pipe a YAML list of actions")
	}
	return automation.ParseSteps(data)
}

func runDo(cmd *cobra.Command, args []string) error {
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")
	steps, err := readSteps(cmd)
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

	res := d.RunSteps(ctx, t, steps, stopOnError)
	if err := output.Print(res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}
