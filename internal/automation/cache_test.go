package automation

import (
	"errors"
	"testing"
	"time"

	"github.com/mj1618/mobile-cli/internal/geometry"
)

func TestViewportCache(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewViewportCache(5 * time.Second)
	c.now = func() time.Time { return now }

	reads := 0
	read := func() (geometry.Viewport, error) {
		reads++
		return geometry.Viewport{Width: 390, Height: 844}, nil
	}

	steps := []struct {
		name      string
		advance   time.Duration
		device    string
		wantReads int
	}{
		{"first read", 0, "ios-1", 1},
		{"cached", 2 * time.Second, "ios-1", 1},
		{"other device", 0, "android-1", 2},
		{"expired", 4 * time.Second, "ios-1", 3},
	}
	for _, s := range steps {
		now = now.Add(s.advance)
		vp, err := c.Get(s.device, read)
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if vp.Width != 390 {
			t.Errorf("%s: width = %v", s.name, vp.Width)
		}
		if reads != s.wantReads {
			t.Errorf("%s: reads = %d, want %d", s.name, reads, s.wantReads)
		}
	}

	c.Invalidate("ios-1")
	c.Get("ios-1", read)
	if reads != 4 {
		t.Errorf("after Invalidate reads = %d, want 4", reads)
	}
	c.InvalidateAll()
	c.Get("android-1", read)
	if reads != 5 {
		t.Errorf("after InvalidateAll reads = %d, want 5", reads)
	}
}

func TestViewportCacheErrorsNotStored(t *testing.T) {
	c := NewViewportCache(time.Minute)
	boom := errors.New("boom")
	if _, err := c.Get("ios-1", func() (geometry.Viewport, error) { return geometry.Viewport{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	called := false
	c.Get("ios-1", func() (geometry.Viewport, error) {
		called = true
		return geometry.Viewport{Width: 1, Height: 1}, nil
	})
	if !called {
		t.Error("failed read was cached")
	}
}

func TestViewportCacheDisabled(t *testing.T) {
	c := NewViewportCache(0)
	reads := 0
	for i := 0; i < 3; i++ {
		c.Get("ios-1", func() (geometry.Viewport, error) {
			reads++
			return geometry.Viewport{}, nil
		})
	}
	if reads != 3 {
		t.Errorf("reads = %d, want 3", reads)
	}
}
