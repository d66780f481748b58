package platform

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/mobile-cli/internal/geometry"
	"github.com/mj1618/mobile-cli/internal/logger"
	"github.com/mj1618/mobile-cli/internal/model"
)

// TreeDocument is the on-disk shape read by FileReader. YAML and JSON are
// both accepted.
type TreeDocument struct {
	Viewport geometry.Viewport `yaml:"viewport" json:"viewport"`
	Tree     model.Node        `yaml:"tree"     json:"tree"`
}

// FileReader serves a tree document from disk. The file is re-read on every
// snapshot so edits show up like a live UI would.
type FileReader struct {
	path string
}

// NewFileReader returns a reader for path.
func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

// LoadTreeDocument reads and validates a tree document.
func LoadTreeDocument(path string) (*TreeDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}
	var doc TreeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tree file %s: %w", path, err)
	}
	if doc.Tree.Type == "" {
		return nil, fmt.Errorf("tree file %s: root node has no type", path)
	}
	if doc.Viewport.Width <= 0 || doc.Viewport.Height <= 0 {
		return nil, fmt.Errorf("tree file %s: viewport must have positive width and height", path)
	}
	return &doc, nil
}

func (r *FileReader) Snapshot() (*model.Node, error) {
	doc, err := LoadTreeDocument(r.path)
	if err != nil {
		return nil, err
	}
	return &doc.Tree, nil
}

func (r *FileReader) Viewport() (geometry.Viewport, error) {
	doc, err := LoadTreeDocument(r.path)
	if err != nil {
		return geometry.Viewport{}, err
	}
	return doc.Viewport, nil
}

// Action is one input event recorded by LogInputter.
type Action struct {
	Kind     string        `yaml:"kind"               json:"kind"`
	X        float64       `yaml:"x"                  json:"x"`
	Y        float64       `yaml:"y"                  json:"y"`
	ToX      float64       `yaml:"toX,omitempty"      json:"toX,omitempty"`
	ToY      float64       `yaml:"toY,omitempty"      json:"toY,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	Text     string        `yaml:"text,omitempty"     json:"text,omitempty"`
}

// LogInputter records input instead of injecting it. It stands in for a
// device backend when simulating an app.
type LogInputter struct {
	mu      sync.Mutex
	actions []Action
}

// NewLogInputter returns an empty recorder.
func NewLogInputter() *LogInputter {
	return &LogInputter{}
}

func (l *LogInputter) record(a Action) error {
	l.mu.Lock()
	l.actions = append(l.actions, a)
	l.mu.Unlock()
	logger.Info("input %s at (%.0f, %.0f)", a.Kind, a.X, a.Y)
	return nil
}

func (l *LogInputter) Tap(x, y float64) error {
	return l.record(Action{Kind: "tap", X: x, Y: y})
}

func (l *LogInputter) LongPress(x, y float64, d time.Duration) error {
	return l.record(Action{Kind: "longPress", X: x, Y: y, Duration: d})
}

func (l *LogInputter) Swipe(fromX, fromY, toX, toY float64, d time.Duration) error {
	return l.record(Action{Kind: "swipe", X: fromX, Y: fromY, ToX: toX, ToY: toY, Duration: d})
}

func (l *LogInputter) TypeText(text string) error {
	return l.record(Action{Kind: "typeText", Text: text})
}

// Actions returns a copy of everything recorded so far.
func (l *LogInputter) Actions() []Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Action(nil), l.actions...)
}
