package model

// FlatNode is a node with a path breadcrumb instead of children.
type FlatNode struct {
	UID     string   `yaml:"uid"               json:"uid"`
	Type    string   `yaml:"type"              json:"type"`
	TestID  string   `yaml:"testID,omitempty"  json:"testID,omitempty"`
	Text    string   `yaml:"text,omitempty"    json:"text,omitempty"`
	Press   bool     `yaml:"press,omitempty"   json:"press,omitempty"`
	Scroll  bool     `yaml:"scroll,omitempty"  json:"scroll,omitempty"`
	Measure *Measure `yaml:"measure,omitempty" json:"measure,omitempty"`
	Depth   int      `yaml:"depth"             json:"depth"`
	Path    string   `yaml:"p,omitempty"       json:"p,omitempty"`
}

// FlattenTree converts a node tree into a pre-order list. Each entry gets a
// path string of the node types from the root joined with " > ". Text is the
// node's own text, not the descendant concatenation.
func FlattenTree(root *Node) []FlatNode {
	if root == nil {
		return nil
	}
	var result []FlatNode
	flattenRecursive(root, nil, "", &result)
	return result
}

func flattenRecursive(n *Node, index []int, parentPath string, result *[]FlatNode) {
	currentPath := n.Type
	if parentPath != "" {
		currentPath = parentPath + " > " + n.Type
	}

	uid := n.TestID
	if uid == "" {
		uid = PathString(index)
	}
	if uid == "" {
		uid = RootUID
	}

	*result = append(*result, FlatNode{
		UID:     uid,
		Type:    n.Type,
		TestID:  n.TestID,
		Text:    n.Text,
		Press:   n.Capabilities.Press,
		Scroll:  n.Capabilities.Scroll,
		Measure: n.Measure,
		Depth:   len(index),
		Path:    currentPath,
	})

	for i := range n.Children {
		flattenRecursive(&n.Children[i], append(index[:len(index):len(index)], i), currentPath, result)
	}
}

// Walk visits every node in pre-order with its sibling-index path. The path
// slice is reused between calls; copy it to keep it.
func Walk(root *Node, fn func(n *Node, path []int)) {
	if root == nil {
		return
	}
	walk(root, make([]int, 0, 16), fn)
}

func walk(n *Node, path []int, fn func(n *Node, path []int)) {
	fn(n, path)
	for i := range n.Children {
		walk(&n.Children[i], append(path, i), fn)
	}
}
