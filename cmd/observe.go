package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/model"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch for UI changes and stream diffs as JSONL",
	Long: `Poll the app's component tree and emit changes (added, removed, modified
nodes) as JSONL to stdout. Nodes are matched by uid across reads.

Each line is a JSON object for one event. No output is emitted while the UI
is stable. Output is always JSONL regardless of the --format flag.

Use Ctrl+C or --duration to stop observing.`,
	RunE: runObserve,
}

func init() {
	rootCmd.AddCommand(observeCmd)
	observeCmd.Flags().Int("interval", 1000, "Polling interval in milliseconds")
	observeCmd.Flags().Int("duration", 0, "Max seconds to observe (0 = until Ctrl+C)")
	observeCmd.Flags().Bool("prune", true, "Collapse anonymous layout containers before diffing")
	observeCmd.Flags().Bool("ignore-measure", false, "Ignore layout changes")
	addTargetFlags(observeCmd)
}

func runObserve(cmd *cobra.Command, args []string) error {
	intervalMs, _ := cmd.Flags().GetInt("interval")
	durationSec, _ := cmd.Flags().GetInt("duration")
	prune, _ := cmd.Flags().GetBool("prune")
	ignoreMeasure, _ := cmd.Flags().GetBool("ignore-measure")
	if intervalMs <= 0 {
		return fmt.Errorf("--interval must be > 0")
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

	// Pin the device so every read diffs the same app.
	id, err := d.Resolve(t)
	if err != nil {
		return err
	}
	t = automation.Target{DeviceID: id}

	read := func() ([]model.FlatNode, error) {
		root, err := d.Tree(t)
		if err != nil {
			return nil, err
		}
		shaped := model.Shape(*root, model.ShapeOptions{Prune: prune})
		return model.FlattenTree(&shaped), nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)

	interval := time.Duration(intervalMs) * time.Millisecond
	var deadline <-chan time.Time
	if durationSec > 0 {
		timer := time.NewTimer(time.Duration(durationSec) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}
	start := time.Now()

	prev, err := read()
	if err != nil {
		return fmt.Errorf("initial read failed: %w", err)
	}
	enc.Encode(map[string]interface{}{
		"type":   "snapshot",
		"ts":     time.Now().Unix(),
		"device": id,
		"count":  len(prev),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	eventCount := 0

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case <-ticker.C:
		}

		curr, err := read()
		if err != nil {
			enc.Encode(map[string]interface{}{
				"type":  "error",
				"ts":    time.Now().Unix(),
				"error": err.Error(),
			})
			continue
		}

		for _, change := range model.DiffTree(prev, curr, time.Now().Unix()) {
			if change.Type == model.ChangeChanged && ignoreMeasure {
				delete(change.Changes, "measure")
				if len(change.Changes) == 0 {
					continue
				}
			}
			enc.Encode(change)
			eventCount++
		}
		prev = curr
	}

	enc.Encode(map[string]interface{}{
		"type":    "done",
		"ts":      time.Now().Unix(),
		"elapsed": fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		"events":  eventCount,
	})
	return nil
}
