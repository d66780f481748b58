package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/mobile-cli/internal/model"
)

// WaitOptions controls WaitFor polling.
type WaitOptions struct {
	Selector string
	// Gone waits until the selector no longer matches.
	Gone     bool
	Timeout  time.Duration
	Interval time.Duration
}

// WaitResult reports how a wait ended.
type WaitResult struct {
	OK       bool                     `yaml:"ok"                  json:"ok"`
	Elapsed  string                   `yaml:"elapsed"             json:"elapsed"`
	Match    string                   `yaml:"match"               json:"match"`
	Element  *model.ElementDescriptor `yaml:"element,omitempty"   json:"element,omitempty"`
	TimedOut bool                     `yaml:"timed_out,omitempty" json:"timed_out,omitempty"`
}

// WaitFor polls the device until the selector matches (or, with Gone, stops
// matching) or the timeout passes. Transient query errors are retried until
// the deadline. A timeout returns the result together with an error.
func (d *Driver) WaitFor(ctx context.Context, t Target, opts WaitOptions) (*WaitResult, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	match := describeWait(opts)

	id, err := d.resolve(t)
	if err != nil {
		return nil, fmt.Errorf("wait failed: %w", err)
	}

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	var lastErr error
	for {
		el, err := d.find(id, opts.Selector)
		if err == nil {
			met := el != nil
			if opts.Gone {
				met = !met
			}
			if met {
				return &WaitResult{
					OK:      true,
					Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
					Match:   match,
					Element: el,
				}, nil
			}
		}
		lastErr = err

		if time.Now().After(deadline) {
			res := &WaitResult{
				Elapsed:  fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
				Match:    match,
				TimedOut: true,
			}
			if lastErr != nil {
				return res, fmt.Errorf("timed out waiting for %s (last error: %w)", match, lastErr)
			}
			return res, fmt.Errorf("timed out waiting for %s", match)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
}

func describeWait(opts WaitOptions) string {
	if opts.Gone {
		return opts.Selector + " gone"
	}
	return opts.Selector
}
