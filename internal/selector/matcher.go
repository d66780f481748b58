package selector

import (
	"sort"
	"strings"

	"github.com/mj1618/mobile-cli/internal/model"
)

// entry is one node of the pre-order index built for a match.
type entry struct {
	node   *model.Node
	path   []int
	parent int // -1 for the root
	end    int // exclusive index of the last node in this subtree
}

// index is a pre-order view of a tree. Subtree i spans entries[i:end].
type index struct {
	entries []entry
	text    string // every node's own text, concatenated in pre-order
	textAt  []int  // offset into text where node i's own text starts
}

func buildIndex(root *model.Node) *index {
	idx := &index{}
	var b strings.Builder
	var visit func(n *model.Node, path []int, parent int)
	visit = func(n *model.Node, path []int, parent int) {
		i := len(idx.entries)
		idx.entries = append(idx.entries, entry{node: n, path: path, parent: parent})
		idx.textAt = append(idx.textAt, b.Len())
		b.WriteString(n.Text)
		for c := range n.Children {
			visit(&n.Children[c], append(path[:len(path):len(path)], c), i)
		}
		idx.entries[i].end = len(idx.entries)
	}
	visit(root, nil, -1)
	idx.text = b.String()
	idx.textAt = append(idx.textAt, len(idx.text))
	return idx
}

// subtreeText is the concatenated text of node i and all its descendants.
func (idx *index) subtreeText(i int) string {
	return idx.text[idx.textAt[i]:idx.textAt[idx.entries[i].end]]
}

func (idx *index) all() []int {
	out := make([]int, len(idx.entries))
	for i := range out {
		out[i] = i
	}
	return out
}

// MatchAll returns every node matching sel in pre-order traversal order.
func MatchAll(sel Selector, root *model.Node) []model.ElementDescriptor {
	if sel == nil || root == nil {
		return []model.ElementDescriptor{}
	}
	idx := buildIndex(root)
	matches := idx.eval(sel, idx.all())
	out := make([]model.ElementDescriptor, 0, len(matches))
	for _, i := range matches {
		e := idx.entries[i]
		out = append(out, e.node.Describe(e.path))
	}
	return out
}

// Match returns the first node matching sel in traversal order, or nil.
func Match(sel Selector, root *model.Node) *model.ElementDescriptor {
	all := MatchAll(sel, root)
	if len(all) == 0 {
		return nil
	}
	return &all[0]
}

// Find parses input and returns the first match. Malformed input yields nil.
func Find(input string, root *model.Node) *model.ElementDescriptor {
	sel, err := Parse(input)
	if err != nil {
		return nil
	}
	return Match(sel, root)
}

// FindAll parses input and returns every match. Malformed input yields an
// empty slice.
func FindAll(input string, root *model.Node) []model.ElementDescriptor {
	sel, err := Parse(input)
	if err != nil {
		return []model.ElementDescriptor{}
	}
	return MatchAll(sel, root)
}

// eval narrows candidates (ascending entry indices) to those matching sel.
// The result is ascending too.
func (idx *index) eval(sel Selector, candidates []int) []int {
	switch s := sel.(type) {
	case Compound:
		out := candidates
		for _, part := range s.Parts {
			if !isPositional(part) {
				out = idx.filter(part, out)
			}
		}
		for _, part := range s.Parts {
			if isPositional(part) {
				out = position(part, out)
			}
		}
		return out

	case Child:
		parents := idx.eval(s.Parent, idx.all())
		isParent := make([]bool, len(idx.entries))
		for _, p := range parents {
			isParent[p] = true
		}
		var scoped []int
		for _, c := range candidates {
			if p := idx.entries[c].parent; p >= 0 && isParent[p] {
				scoped = append(scoped, c)
			}
		}
		return idx.eval(s.Child, scoped)

	case Descendant:
		ancestors := idx.eval(s.Ancestor, idx.all())
		inside := make([]bool, len(idx.entries))
		for _, a := range ancestors {
			for i := a + 1; i < idx.entries[a].end; i++ {
				inside[i] = true
			}
		}
		var scoped []int
		for _, c := range candidates {
			if inside[c] {
				scoped = append(scoped, c)
			}
		}
		return idx.eval(s.Descendant, scoped)

	case Or:
		seen := make(map[int]bool)
		var out []int
		for _, alt := range s.Alternatives {
			for _, i := range idx.eval(alt, candidates) {
				if !seen[i] {
					seen[i] = true
					out = append(out, i)
				}
			}
		}
		sort.Ints(out)
		return out

	case Nth, First, Last:
		return position(s, candidates)
	}
	return idx.filter(sel, candidates)
}

func (idx *index) filter(sel Selector, candidates []int) []int {
	var out []int
	for _, i := range candidates {
		if idx.holds(sel, i) {
			out = append(out, i)
		}
	}
	return out
}

// holds reports whether a simple predicate is true for entry i.
func (idx *index) holds(sel Selector, i int) bool {
	n := idx.entries[i].node
	switch s := sel.(type) {
	case TypeMatch:
		return n.Type == s.Name
	case IDMatch:
		return n.TestID == s.ID
	case AttrMatch:
		v, ok := n.Attr(s.Key)
		return ok && v == s.Value
	case TextMatch:
		return strings.Contains(idx.subtreeText(i), s.Substring)
	case DisplayNameMatch:
		return n.DisplayName == s.Name
	case HasPress:
		return n.Capabilities.Press
	case HasScroll:
		return n.Capabilities.Scroll
	}
	return len(idx.eval(sel, []int{i})) == 1
}

func position(sel Selector, candidates []int) []int {
	if len(candidates) == 0 {
		return nil
	}
	switch s := sel.(type) {
	case First:
		return candidates[:1]
	case Last:
		return candidates[len(candidates)-1:]
	case Nth:
		if s.Index >= len(candidates) {
			return nil
		}
		return candidates[s.Index : s.Index+1]
	}
	return candidates
}
