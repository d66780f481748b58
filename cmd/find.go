package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/automation"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/output"
)

var findCmd = &cobra.Command{
	Use:   "find [selector]",
	Short: "Find elements matching a selector",
	Long: `Find UI elements on a connected app with a CSS-like selector.

Selectors:
  Pressable            component type
  #submit              testID
  [accessibilityLabel="Close"]
  :text("Sign in")     text contained in the element's subtree
  :displayName("Card") component display name
  :has-press :has-scroll
  :nth(2) :first :last
  'A > B'  'A B'  'A, B'

Examples:
  mobile-cli find '#submit'
  mobile-cli find 'ScrollView > View' --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().String("selector", "", "Element selector")
	findCmd.Flags().Bool("all", false, "Return every match instead of the first")
	addTargetFlags(findCmd)
}

// findResult is the output of the find command.
type findResult struct {
	OK       bool                      `yaml:"ok"                 json:"ok"`
	Device   string                    `yaml:"device"             json:"device"`
	Selector string                    `yaml:"selector"           json:"selector"`
	Total    int                       `yaml:"total"              json:"total"`
	Elements []model.ElementDescriptor `yaml:"elements"           json:"elements"`
}

func runFind(cmd *cobra.Command, args []string) error {
	sel := selectorArg(cmd, args)
	if sel == "" {
		return fmt.Errorf("find needs a selector")
	}
	all, _ := cmd.Flags().GetBool("all")
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
	t = automation.Target{DeviceID: id}
	res, err := findElements(d, t, sel, all)
	if err != nil {
		return err
	}
	res.Device = id
	if res.Total == 0 {
		if err := output.Print(res); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", automation.ErrElementNotFound, sel)
	}
	return output.Print(res)
}

func findElements(d *automation.Driver, t automation.Target, sel string, all bool) (*findResult, error) {
	res := &findResult{OK: true, Selector: sel, Elements: []model.ElementDescriptor{}}
	if all {
		els, err := d.FindAll(t, sel)
		if err != nil {
			return nil, err
		}
		res.Elements = els
	} else {
		el, err := d.Find(t, sel)
		if err != nil {
			return nil, err
		}
		if el != nil {
			res.Elements = append(res.Elements, *el)
		}
	}
	res.Total = len(res.Elements)
	res.OK = res.Total > 0
	return res, nil
}
