package model

import "strings"

// containerTypes are layout-only node types that carry nothing an agent can
// target unless they have an identifier, text, or a capability.
var containerTypes = map[string]bool{
	"View":          true,
	"RCTView":       true,
	"Animated.View": true,
	"Fragment":      true,
	"ViewGroup":     true,
}

// isAnonymousContainer returns true if the node is a layout container with
// no identifier, no own text, no capabilities, and no attributes.
func isAnonymousContainer(n Node) bool {
	return containerTypes[n.Type] &&
		n.TestID == "" && n.Text == "" &&
		!n.Capabilities.Press && !n.Capabilities.Scroll &&
		len(n.Attributes) == 0
}

// PruneAnonymous removes anonymous container nodes from a tree and promotes
// their children to the parent. The root is always kept. Pruned trees are for
// display only: structural uids must be computed on the original tree.
func PruneAnonymous(root Node) Node {
	pruned := root
	pruned.Children = pruneChildren(root.Children)
	return pruned
}

func pruneChildren(children []Node) []Node {
	var result []Node
	for _, c := range children {
		prunedChildren := pruneChildren(c.Children)
		if isAnonymousContainer(c) {
			result = append(result, prunedChildren...)
			continue
		}
		kept := c
		kept.Children = prunedChildren
		result = append(result, kept)
	}
	return result
}

// FilterByText keeps nodes whose descendant text contains text
// (case-insensitive) along with their ancestry. The root is always kept.
func FilterByText(root Node, text string) Node {
	if text == "" {
		return root
	}
	filtered := root
	filtered.Children = filterChildrenByText(root.Children, strings.ToLower(text))
	return filtered
}

func filterChildrenByText(children []Node, textLower string) []Node {
	var result []Node
	for _, c := range children {
		childMatches := filterChildrenByText(c.Children, textLower)
		if strings.Contains(strings.ToLower(c.Text), textLower) || len(childMatches) > 0 {
			kept := c
			kept.Children = childMatches
			result = append(result, kept)
		}
	}
	return result
}

// LimitDepth returns a copy of the tree truncated below depth levels. A depth
// of 0 means unlimited.
func LimitDepth(root Node, depth int) Node {
	if depth <= 0 {
		return root
	}
	return limitDepth(root, depth)
}

func limitDepth(n Node, remaining int) Node {
	out := n
	if remaining == 0 {
		out.Children = nil
		return out
	}
	out.Children = make([]Node, len(n.Children))
	for i, c := range n.Children {
		out.Children[i] = limitDepth(c, remaining-1)
	}
	return out
}

// ShapeOptions controls Shape.
type ShapeOptions struct {
	Depth int
	Text  string
	Prune bool
}

// Shape applies the text filter, anonymous-container pruning and depth limit
// to root, in that order.
func Shape(root Node, opts ShapeOptions) Node {
	root = FilterByText(root, opts.Text)
	if opts.Prune {
		root = PruneAnonymous(root)
	}
	return LimitDepth(root, opts.Depth)
}
