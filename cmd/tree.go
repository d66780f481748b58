package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/output"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Read the app's UI component tree",
	Long: `Read the component tree of a connected app.

Anonymous layout wrappers (no testID, text, label or handlers) are collapsed
by default; pass --prune=false to keep them. --flat lists every node with
its path instead of nesting.`,
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().Int("depth", 0, "Max depth to return (0 = unlimited)")
	treeCmd.Flags().String("text", "", "Keep only branches containing this text (case-insensitive)")
	treeCmd.Flags().Bool("prune", true, "Collapse anonymous layout containers")
	treeCmd.Flags().Bool("flat", false, "Output a flat list with paths instead of a tree")
	addTargetFlags(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	depth, _ := cmd.Flags().GetInt("depth")
	text, _ := cmd.Flags().GetString("text")
	prune, _ := cmd.Flags().GetBool("prune")
	flat, _ := cmd.Flags().GetBool("flat")

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

	id, err := d.Resolve(t)
	if err != nil {
		return err
	}
	root, err := d.Tree(automation.Target{DeviceID: id})
	if err != nil {
		return err
	}
	shaped := model.Shape(*root, model.ShapeOptions{Depth: depth, Text: text, Prune: prune})
	return output.Print(treeOutput(id, time.Now().Unix(), shaped, flat))
}

func treeOutput(device string, ts int64, root model.Node, flat bool) interface{} {
	if flat {
		elements := model.FlattenTree(&root)
		if elements == nil {
			elements = []model.FlatNode{}
		}
		return output.FlatTreeResult{Device: device, TS: ts, Elements: elements}
	}
	return output.TreeResult{Device: device, TS: ts, Tree: root}
}
