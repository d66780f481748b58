package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/mobile-cli/internal/model"
	"github.com/mj1618/mobile-cli/internal/protocol"
)

// AssertOptions describes the expected state of the element matched by
// Selector.
type AssertOptions struct {
	Selector string
	// Gone asserts that nothing matches.
	Gone         bool
	Text         string
	HasText      bool
	TextContains string
	Pressable    bool
	Scrollable   bool
	// Count asserts the number of matches when >= 0. Use -1 to skip.
	Count int
	// Timeout > 0 keeps re-checking until the assertion passes.
	Timeout  time.Duration
	Interval time.Duration
}

// AssertResult is the outcome of an assertion.
type AssertResult struct {
	Pass    bool                     `yaml:"pass"              json:"pass"`
	Error   string                   `yaml:"error,omitempty"   json:"error,omitempty"`
	Count   int                      `yaml:"count"             json:"count"`
	Element *model.ElementDescriptor `yaml:"element,omitempty" json:"element,omitempty"`
}

// Assert checks the element matched by opts.Selector once, or polls until
// opts.Timeout when it is set. A failing assertion is reported in the
// result, not as an error; errors are reserved for device selection.
func (d *Driver) Assert(ctx context.Context, t Target, opts AssertOptions) (*AssertResult, error) {
	id, err := d.resolve(t)
	if err != nil {
		return nil, fmt.Errorf("assert failed: %w", err)
	}
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(opts.Timeout)
	for {
		res := d.checkAssert(id, opts)
		if res.Pass || opts.Timeout <= 0 || time.Now().After(deadline) {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
}

func (d *Driver) checkAssert(deviceID string, opts AssertOptions) *AssertResult {
	var els []model.ElementDescriptor
	if strings.TrimSpace(opts.Selector) != "" {
		err := d.call(deviceID, protocol.MethodQuery, protocol.QueryParams{Selector: opts.Selector, All: true}, &els)
		if err != nil {
			return &AssertResult{Error: err.Error()}
		}
	}
	res := &AssertResult{Count: len(els)}
	if len(els) > 0 {
		res.Element = &els[0]
	}

	if opts.Gone {
		if len(els) > 0 {
			res.Error = fmt.Sprintf("expected %s to be gone but found: %s", opts.Selector, describeElement(res.Element))
			return res
		}
		res.Pass = true
		return res
	}
	if opts.Count >= 0 {
		if len(els) != opts.Count {
			res.Error = fmt.Sprintf("expected %d matches for %s but got %d", opts.Count, opts.Selector, len(els))
			return res
		}
		if opts.Count == 0 {
			res.Pass = true
			return res
		}
	}
	if res.Element == nil {
		res.Error = fmt.Sprintf("%s: %s", ErrElementNotFound, opts.Selector)
		return res
	}
	if err := checkProperties(res.Element, opts); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Pass = true
	return res
}

func checkProperties(el *model.ElementDescriptor, opts AssertOptions) error {
	if opts.HasText && el.Text != opts.Text {
		return fmt.Errorf("expected text %q but got %q", opts.Text, el.Text)
	}
	if opts.TextContains != "" && !strings.Contains(strings.ToLower(el.Text), strings.ToLower(opts.TextContains)) {
		return fmt.Errorf("expected text to contain %q but got %q", opts.TextContains, el.Text)
	}
	if opts.Pressable && !el.HasPressHandler {
		return fmt.Errorf("expected %s to be pressable but it is not", el.UID)
	}
	if opts.Scrollable && !el.HasScrollCapability {
		return fmt.Errorf("expected %s to be scrollable but it is not", el.UID)
	}
	return nil
}

// describeElement returns a brief human-readable description of an element.
func describeElement(el *model.ElementDescriptor) string {
	parts := []string{"uid=" + el.UID, "type=" + el.Type}
	if el.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", el.Text))
	}
	return strings.Join(parts, " ")
}
