package cmd

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/mobile-cli/internal/wireframe"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [selector]",
	Short: "Draw matching elements as labelled boxes",
	Long: `Render every element matching a selector as a box on a screen-sized image.
Each box is labelled at the point a tap would land, either with its
coordinates or its uid. Pass --background with a device screenshot to draw
over the real screen.

Examples:
  mobile-cli annotate ':has-press' --output boxes.png
  mobile-cli annotate 'TextInput' --label uid --background screen.png --output out.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().String("selector", "", "Element selector (default: :has-press)")
	annotateCmd.Flags().String("label", "coords", "Label mode: coords, uid")
	annotateCmd.Flags().Float64("scale", 0.5, "Scale factor 0.1-1.0 (for token efficiency)")
	annotateCmd.Flags().String("background", "", "Screenshot (png or jpg) to draw over")
	annotateCmd.Flags().String("output", "", "Output file path (default: stdout as base64)")
	annotateCmd.Flags().String("format", "png", "Image format: png, jpg")
	annotateCmd.Flags().Int("quality", 80, "JPEG quality 1-100")
	addTargetFlags(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	sel := selectorArg(cmd, args)
	if sel == "" {
		sel = ":has-press"
	}
	labelStr, _ := cmd.Flags().GetString("label")
	scale, _ := cmd.Flags().GetFloat64("scale")
	bgPath, _ := cmd.Flags().GetString("background")
	outPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	quality, _ := cmd.Flags().GetInt("quality")

	if scale < 0.1 || scale > 1.0 {
		return fmt.Errorf("--scale must be between 0.1 and 1.0")
	}
	label, err := wireframe.ParseLabelMode(labelStr)
	if err != nil {
		return err
	}
	opts := wireframe.Options{Scale: scale, Label: label}
	if bgPath != "" {
		f, err := os.Open(bgPath)
		if err != nil {
			return err
		}
		bg, err := wireframe.Decode(f)
		f.Close()
		if err != nil {
			return err
		}
		opts.Background = bg
	}

	t, err := getTarget(cmd)
	if err != nil {
		return err
	}
	d, closeFn, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	els, err := d.FindAll(t, sel)
	if err != nil {
		return err
	}
	vp, err := d.Viewport(t)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := wireframe.Encode(&buf, wireframe.Render(els, vp, opts), format, quality); err != nil {
		return err
	}
	if outPath != "" {
		return os.WriteFile(outPath, buf.Bytes(), 0644)
	}
	return writeBase64(cmd.OutOrStdout(), buf.Bytes())
}

// writeBase64 writes data to w as base64 for easy agent consumption.
func writeBase64(w io.Writer, data []byte) error {
	encoder := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := encoder.Write(data); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
