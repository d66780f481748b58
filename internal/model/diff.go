package model

import (
	"fmt"
	"strconv"
)

// ChangeType represents the kind of UI change detected.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// UIChange represents a single change between two reads.
type UIChange struct {
	Type    ChangeType           `yaml:"type"              json:"type"`
	TS      int64                `yaml:"ts"                json:"ts"`
	UID     string               `yaml:"uid"               json:"uid"`
	Node    *FlatNode            `yaml:"node,omitempty"    json:"node,omitempty"`    // added: the full node
	Changes map[string][2]string `yaml:"changes,omitempty" json:"changes,omitempty"` // changed: field diffs
}

// diffKeys identifies each node across reads. Repeated uids (a testID reused in
// a list) get an occurrence suffix so each copy is tracked separately.
func diffKeys(nodes []FlatNode) []string {
	seen := make(map[string]int, len(nodes))
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		k := n.UID
		if c := seen[n.UID]; c > 0 {
			k += "#" + strconv.Itoa(c)
		}
		seen[n.UID]++
		keys[i] = k
	}
	return keys
}

// DiffTree compares two flattened trees and returns the changes at ts.
// Nodes are matched by uid: testID when set, otherwise the structural path.
// Added and changed nodes come in the order of curr, removed ones after in
// the order of prev.
func DiffTree(prev, curr []FlatNode, ts int64) []UIChange {
	prevKeys := diffKeys(prev)
	prevMap := make(map[string]FlatNode, len(prev))
	for i, n := range prev {
		prevMap[prevKeys[i]] = n
	}
	currKeys := diffKeys(curr)
	currSet := make(map[string]bool, len(curr))

	var changes []UIChange
	for i, n := range curr {
		key := currKeys[i]
		currSet[key] = true
		before, existed := prevMap[key]
		if !existed {
			node := n
			changes = append(changes, UIChange{Type: ChangeAdded, TS: ts, UID: n.UID, Node: &node})
			continue
		}
		if diffs := diffProperties(before, n); len(diffs) > 0 {
			changes = append(changes, UIChange{Type: ChangeChanged, TS: ts, UID: n.UID, Changes: diffs})
		}
	}

	for i, n := range prev {
		if !currSet[prevKeys[i]] {
			changes = append(changes, UIChange{Type: ChangeRemoved, TS: ts, UID: n.UID})
		}
	}
	return changes
}

// diffProperties compares two nodes and returns changed fields.
func diffProperties(prev, curr FlatNode) map[string][2]string {
	diffs := make(map[string][2]string)

	if prev.Type != curr.Type {
		diffs["type"] = [2]string{prev.Type, curr.Type}
	}
	if prev.Text != curr.Text {
		diffs["text"] = [2]string{prev.Text, curr.Text}
	}
	if prev.Press != curr.Press {
		diffs["press"] = [2]string{strconv.FormatBool(prev.Press), strconv.FormatBool(curr.Press)}
	}
	if prev.Scroll != curr.Scroll {
		diffs["scroll"] = [2]string{strconv.FormatBool(prev.Scroll), strconv.FormatBool(curr.Scroll)}
	}
	if a, b := formatMeasure(prev.Measure), formatMeasure(curr.Measure); a != b {
		diffs["measure"] = [2]string{a, b}
	}

	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

func formatMeasure(m *Measure) string {
	if m == nil {
		return ""
	}
	r := m.Screen()
	return fmt.Sprintf("%g,%g %gx%g", r.X, r.Y, r.Width, r.Height)
}
