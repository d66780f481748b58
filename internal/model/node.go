package model

import (
	"strconv"
	"strings"
)

// Capabilities are the interaction hooks a node exposes.
type Capabilities struct {
	Press  bool `yaml:"press,omitempty"  json:"press,omitempty"`
	Scroll bool `yaml:"scroll,omitempty" json:"scroll,omitempty"`
}

// Node is one element of the live UI tree. The app runtime builds it once per
// query from whatever its framework exposes, so the matcher never sees the
// framework's own representation.
type Node struct {
	Type         string            `yaml:"type"                  json:"type"`
	TestID       string            `yaml:"testID,omitempty"      json:"testID,omitempty"`
	Text         string            `yaml:"text,omitempty"        json:"text,omitempty"`
	DisplayName  string            `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Attributes   map[string]string `yaml:"attributes,omitempty"  json:"attributes,omitempty"`
	Capabilities Capabilities      `yaml:"capabilities"          json:"capabilities"`
	Measure      *Measure          `yaml:"measure,omitempty"     json:"measure,omitempty"`
	Children     []Node            `yaml:"children,omitempty"    json:"children,omitempty"`
}

// Attr returns the value of a string-keyed property. Explicit attributes win;
// a few well-known keys fall back to the node's typed fields.
func (n *Node) Attr(key string) (string, bool) {
	if v, ok := n.Attributes[key]; ok {
		return v, true
	}
	switch key {
	case "testID":
		return n.TestID, n.TestID != ""
	case "type":
		return n.Type, n.Type != ""
	case "displayName":
		return n.DisplayName, n.DisplayName != ""
	case "text":
		return n.Text, n.Text != ""
	}
	return "", false
}

// TextContent concatenates the text of the node and all its descendants in
// pre-order.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	b.WriteString(n.Text)
	for i := range n.Children {
		n.Children[i].appendText(b)
	}
}

// RootUID is the uid of a root node that carries no identifier.
const RootUID = "root"

// PathString joins sibling indices into a structural path such as "0.1.2".
func PathString(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// Describe builds the descriptor for n located at path.
func (n *Node) Describe(path []int) ElementDescriptor {
	uid := n.TestID
	if uid == "" {
		uid = PathString(path)
	}
	if uid == "" {
		uid = RootUID
	}
	d := ElementDescriptor{
		UID:                 uid,
		Type:                n.Type,
		TestID:              n.TestID,
		Text:                n.TextContent(),
		AccessibilityLabel:  n.Attributes["accessibilityLabel"],
		HasPressHandler:     n.Capabilities.Press,
		HasScrollCapability: n.Capabilities.Scroll,
	}
	if n.Measure != nil {
		m := *n.Measure
		d.Measure = &m
	}
	return d
}
