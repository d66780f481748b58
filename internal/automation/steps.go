package automation

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/platform"
)

// Step is one action of a batch, written in YAML as a single-key map:
//
//	- tap: { selector: "#submit" }
type Step struct {
	Action string
	Params map[string]interface{}
}

// StepResult is the output for a single step within a batch.
type StepResult struct {
	Step    int                      `yaml:"step"              json:"step"`
	OK      bool                     `yaml:"ok"                json:"ok"`
	Action  string                   `yaml:"action"            json:"action"`
	Error   string                   `yaml:"error,omitempty"   json:"error,omitempty"`
	Device  string                   `yaml:"device,omitempty"  json:"device,omitempty"`
	Element *model.ElementDescriptor `yaml:"element,omitempty" json:"element,omitempty"`
	At      *geometry.Point          `yaml:"at,omitempty"      json:"at,omitempty"`
	To      *geometry.Point          `yaml:"to,omitempty"      json:"to,omitempty"`
	Elapsed string                   `yaml:"elapsed,omitempty" json:"elapsed,omitempty"`
	Match   string                   `yaml:"match,omitempty"   json:"match,omitempty"`
}

// BatchResult is the output of RunSteps.
type BatchResult struct {
	OK        bool         `yaml:"ok"              json:"ok"`
	Steps     int          `yaml:"steps"           json:"steps"`
	Completed int          `yaml:"completed"       json:"completed"`
	Error     string       `yaml:"error,omitempty" json:"error,omitempty"`
	Results   []StepResult `yaml:"results"         json:"results"`
}

// ParseSteps decodes a YAML list of single-key step maps.
func ParseSteps(data []byte) ([]Step, error) {
	var raw []map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML steps: %w", err)
	}
	items := make([]interface{}, len(raw))
	for i, m := range raw {
		step := make(map[string]interface{}, len(m))
		for k, v := range m {
			step[k] = v
		}
		items[i] = step
	}
	return StepsFromArgs(items)
}

// StepsFromArgs converts decoded JSON (MCP tool arguments) into steps.
func StepsFromArgs(items []interface{}) ([]Step, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no steps provided, expected a list of actions")
	}
	steps := make([]Step, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("step %d: each step must be an object", i+1)
		}
		if len(m) != 1 {
			return nil, fmt.Errorf("step %d: expected exactly one action key, got %d", i+1, len(m))
		}
		for action, v := range m {
			params, ok := v.(map[string]interface{})
			if v != nil && !ok {
				return nil, fmt.Errorf("step %d: %s parameters must be a map", i+1, action)
			}
			if params == nil {
				params = map[string]interface{}{}
			}
			steps = append(steps, Step{Action: action, Params: params})
		}
	}
	return steps, nil
}

// RunSteps executes steps in order against t. Each step may override the
// device with its own "device" or "platform" parameter.
func (d *Driver) RunSteps(ctx context.Context, t Target, steps []Step, stopOnError bool) *BatchResult {
	res := &BatchResult{Steps: len(steps), Results: make([]StepResult, 0, len(steps))}
	for i, step := range steps {
		target := Target{
			DeviceID: StringParam(step.Params, "device", t.DeviceID),
			Platform: StringParam(step.Params, "platform", t.Platform),
		}
		r, err := d.ExecuteStep(ctx, target, step.Action, step.Params)
		r.Step = i + 1
		if err != nil {
			r.Error = err.Error()
			res.Results = append(res.Results, r)
			if res.Error == "" {
				res.Error = fmt.Sprintf("step %d: %s", r.Step, r.Error)
			}
			if stopOnError {
				break
			}
			continue
		}
		r.OK = true
		res.Completed++
		res.Results = append(res.Results, r)
	}
	res.OK = res.Error == ""
	return res
}

// ExecuteStep runs a single named action.
func (d *Driver) ExecuteStep(ctx context.Context, t Target, action string, params map[string]interface{}) (StepResult, error) {
	switch action {
	case "tap":
		return d.stepTap(t, params)
	case "long-press":
		return d.stepLongPress(t, params)
	case "swipe":
		return d.stepSwipe(t, params)
	case "type":
		return d.stepType(t, params)
	case "wait":
		return d.stepWait(ctx, t, params)
	case "assert":
		return d.stepAssert(ctx, t, params)
	case "sleep":
		return stepSleep(ctx, params)
	default:
		return StepResult{Action: action}, fmt.Errorf("unknown step type %q, supported: tap, long-press, swipe, type, wait, assert, sleep", action)
	}
}

func fromAction(action string, r *ActionResult) StepResult {
	out := StepResult{Action: action, Device: r.Device, Element: r.Element, At: &geometry.Point{X: r.X, Y: r.Y}}
	if r.ToX != nil && r.ToY != nil {
		out.To = &geometry.Point{X: *r.ToX, Y: *r.ToY}
	}
	return out
}

func (d *Driver) stepTap(t Target, params map[string]interface{}) (StepResult, error) {
	sel := StringParam(params, "selector", "")
	var (
		r   *ActionResult
		err error
	)
	switch {
	case sel != "":
		r, err = d.Tap(t, sel)
	case HasParam(params, "x") && HasParam(params, "y"):
		r, err = d.TapAt(t, FloatParam(params, "x", 0), FloatParam(params, "y", 0))
	default:
		return StepResult{Action: "tap"}, fmt.Errorf("tap needs a selector or x and y")
	}
	if err != nil {
		return StepResult{Action: "tap"}, err
	}
	return fromAction("tap", r), nil
}

func (d *Driver) stepLongPress(t Target, params map[string]interface{}) (StepResult, error) {
	sel := StringParam(params, "selector", "")
	if sel == "" {
		return StepResult{Action: "long-press"}, fmt.Errorf("long-press needs a selector")
	}
	r, err := d.LongPress(t, sel, MillisParam(params, "duration", 0))
	if err != nil {
		return StepResult{Action: "long-press"}, err
	}
	return fromAction("long-press", r), nil
}

func (d *Driver) stepSwipe(t Target, params map[string]interface{}) (StepResult, error) {
	dir, err := platform.ParseDirection(StringParam(params, "direction", ""))
	if err != nil {
		return StepResult{Action: "swipe"}, err
	}
	r, err := d.Swipe(t, SwipeOptions{
		Selector:  StringParam(params, "selector", ""),
		Direction: dir,
		Distance:  FloatParam(params, "distance", 0),
		Duration:  MillisParam(params, "duration", 0),
	})
	if err != nil {
		return StepResult{Action: "swipe"}, err
	}
	return fromAction("swipe", r), nil
}

func (d *Driver) stepType(t Target, params map[string]interface{}) (StepResult, error) {
	if !HasParam(params, "text") {
		return StepResult{Action: "type"}, fmt.Errorf("type needs text")
	}
	r, err := d.TypeText(t, StringParam(params, "selector", ""), StringParam(params, "text", ""))
	if err != nil {
		return StepResult{Action: "type"}, err
	}
	out := StepResult{Action: "type", Device: r.Device, Element: r.Element}
	if r.Element != nil {
		out.At = &geometry.Point{X: r.X, Y: r.Y}
	}
	return out, nil
}

func (d *Driver) stepWait(ctx context.Context, t Target, params map[string]interface{}) (StepResult, error) {
	sel := StringParam(params, "selector", "")
	if sel == "" {
		return StepResult{Action: "wait"}, fmt.Errorf("wait needs a selector")
	}
	r, err := d.WaitFor(ctx, t, WaitOptions{
		Selector: sel,
		Gone:     BoolParam(params, "gone", false),
		Timeout:  time.Duration(FloatParam(params, "timeout", 30) * float64(time.Second)),
		Interval: MillisParam(params, "interval", 500*time.Millisecond),
	})
	if err != nil {
		return StepResult{Action: "wait"}, err
	}
	return StepResult{Action: "wait", Element: r.Element, Elapsed: r.Elapsed, Match: r.Match}, nil
}

func (d *Driver) stepAssert(ctx context.Context, t Target, params map[string]interface{}) (StepResult, error) {
	opts := AssertOptionsFromParams(params)
	r, err := d.Assert(ctx, t, opts)
	if err != nil {
		return StepResult{Action: "assert"}, err
	}
	out := StepResult{Action: "assert", Element: r.Element, Match: opts.Selector}
	if !r.Pass {
		return out, fmt.Errorf("assert failed: %s", r.Error)
	}
	return out, nil
}

// AssertOptionsFromParams reads assert options from a parameter map.
func AssertOptionsFromParams(params map[string]interface{}) AssertOptions {
	return AssertOptions{
		Selector:     StringParam(params, "selector", ""),
		Gone:         BoolParam(params, "gone", false),
		Text:         StringParam(params, "text", ""),
		HasText:      HasParam(params, "text"),
		TextContains: StringParam(params, "text-contains", ""),
		Pressable:    BoolParam(params, "pressable", false),
		Scrollable:   BoolParam(params, "scrollable", false),
		Count:        IntParam(params, "count", -1),
		Timeout:      time.Duration(FloatParam(params, "timeout", 0) * float64(time.Second)),
		Interval:     MillisParam(params, "interval", 500*time.Millisecond),
	}
}

func stepSleep(ctx context.Context, params map[string]interface{}) (StepResult, error) {
	ms := IntParam(params, "ms", 0)
	if ms <= 0 {
		return StepResult{Action: "sleep"}, fmt.Errorf("ms must be > 0")
	}
	select {
	case <-ctx.Done():
		return StepResult{Action: "sleep"}, ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
	}
	return StepResult{Action: "sleep", Elapsed: fmt.Sprintf("%dms", ms)}, nil
}
