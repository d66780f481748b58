package model

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

// buildLoginTree returns a small screen:
//
//	View (root)
//	├── Text "Welcome"                       0
//	└── View                                 1
//	    ├── TextInput #email                 1.0
//	    └── Pressable #submit                1.1
//	        └── Text "Sign " + Text "in"     1.1.0, 1.1.1
func buildLoginTree() Node {
	return Node{
		Type: "View",
		Children: []Node{
			{Type: "Text", Text: "Welcome"},
			{
				Type: "View",
				Children: []Node{
					{Type: "TextInput", TestID: "email", Attributes: map[string]string{"placeholder": "Email"}},
					{
						Type:         "Pressable",
						TestID:       "submit",
						Capabilities: Capabilities{Press: true},
						Measure:      &Measure{Width: 200, Height: 44, PageX: 95, PageY: 600},
						Attributes:   map[string]string{"accessibilityLabel": "Sign in button"},
						Children: []Node{
							{Type: "Text", Text: "Sign "},
							{Type: "Text", Text: "in"},
						},
					},
				},
			},
		},
	}
}

func TestDescribe_UsesTestID(t *testing.T) {
	root := buildLoginTree()
	btn := &root.Children[1].Children[1]
	d := btn.Describe([]int{1, 1})

	if d.UID != "submit" {
		t.Errorf("uid = %q, want %q", d.UID, "submit")
	}
	if d.Text != "Sign in" {
		t.Errorf("text = %q, want %q", d.Text, "Sign in")
	}
	if !d.HasPressHandler {
		t.Error("expected hasPressHandler")
	}
	if d.AccessibilityLabel != "Sign in button" {
		t.Errorf("accessibilityLabel = %q", d.AccessibilityLabel)
	}
	c, ok := d.Center()
	if !ok || c.X != 195 || c.Y != 622 {
		t.Errorf("center = %+v (%v), want {195 622}", c, ok)
	}
}

func TestDescribe_StructuralUID(t *testing.T) {
	root := buildLoginTree()
	if got := root.Children[1].Describe([]int{1}).UID; got != "1" {
		t.Errorf("uid = %q, want %q", got, "1")
	}
	if got := root.Children[1].Children[1].Children[0].Describe([]int{1, 1, 0}).UID; got != "1.1.0" {
		t.Errorf("uid = %q, want %q", got, "1.1.0")
	}
	if got := root.Describe(nil).UID; got != RootUID {
		t.Errorf("root uid = %q, want %q", got, RootUID)
	}
}

func TestDescribe_CopiesMeasure(t *testing.T) {
	root := buildLoginTree()
	btn := &root.Children[1].Children[1]
	d := btn.Describe([]int{1, 1})
	d.Measure.PageX = 0
	if btn.Measure.PageX != 95 {
		t.Error("descriptor measure must not alias the tree")
	}
}

func TestAttr_Fallbacks(t *testing.T) {
	n := Node{Type: "Pressable", TestID: "ok", Attributes: map[string]string{"role": "button"}}
	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"role", "button", true},
		{"testID", "ok", true},
		{"type", "Pressable", true},
		{"displayName", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := n.Attr(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Attr(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNode_DecodeJSONAndYAML(t *testing.T) {
	const doc = `{"type":"ScrollView","capabilities":{"scroll":true},"children":[{"type":"Text","text":"hi"}]}`

	var fromJSON Node
	if err := json.Unmarshal([]byte(doc), &fromJSON); err != nil {
		t.Fatal(err)
	}
	var fromYAML Node
	if err := yaml.Unmarshal([]byte(doc), &fromYAML); err != nil {
		t.Fatal(err)
	}
	for _, n := range []Node{fromJSON, fromYAML} {
		if n.Type != "ScrollView" || !n.Capabilities.Scroll || len(n.Children) != 1 || n.Children[0].Text != "hi" {
			t.Errorf("decoded node mismatch: %+v", n)
		}
	}
}
