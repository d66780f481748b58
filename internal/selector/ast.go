// Package selector parses the CSS-like element selector grammar and matches
// it against a UI node tree.
//
//	Type#id[attr="val"]:text("s"):display-name("n"):first|:last|:nth(N):has-press:has-scroll
//
// Whitespace between simple selectors means descendant, ">" means direct
// child and a top-level "," is a logical OR of independent chains.
package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// Selector is a node of the parsed selector AST.
type Selector interface {
	// String renders the selector back in its source grammar.
	String() string
	selector()
}

// TypeMatch matches the node's declared type exactly.
type TypeMatch struct{ Name string }

// IDMatch matches the node's identifier attribute.
type IDMatch struct{ ID string }

// AttrMatch matches a string-keyed node property.
type AttrMatch struct{ Key, Value string }

// TextMatch is a case-sensitive substring match on the concatenated text of
// the node and all its descendants.
type TextMatch struct{ Substring string }

// DisplayNameMatch matches the component display name.
type DisplayNameMatch struct{ Name string }

// HasPress matches nodes exposing a press handler.
type HasPress struct{}

// HasScroll matches nodes exposing scroll control.
type HasScroll struct{}

// Nth keeps the candidate at Index (0-based).
type Nth struct{ Index int }

// First keeps the first candidate.
type First struct{}

// Last keeps the final candidate.
type Last struct{}

// Compound requires every part to hold for the same node. Positional parts
// are applied, in order, after all predicates.
type Compound struct{ Parts []Selector }

// Child matches Child nodes whose parent matches Parent.
type Child struct{ Parent, Child Selector }

// Descendant matches Descendant nodes with any ancestor matching Ancestor.
type Descendant struct{ Ancestor, Descendant Selector }

// Or is the union of its alternatives in traversal order. An Or with no
// alternatives matches nothing.
type Or struct{ Alternatives []Selector }

func (TypeMatch) selector()        {}
func (IDMatch) selector()          {}
func (AttrMatch) selector()        {}
func (TextMatch) selector()        {}
func (DisplayNameMatch) selector() {}
func (HasPress) selector()         {}
func (HasScroll) selector()        {}
func (Nth) selector()              {}
func (First) selector()            {}
func (Last) selector()             {}
func (Compound) selector()         {}
func (Child) selector()            {}
func (Descendant) selector()       {}
func (Or) selector()               {}

func (s TypeMatch) String() string        { return s.Name }
func (s IDMatch) String() string          { return "#" + s.ID }
func (s AttrMatch) String() string        { return fmt.Sprintf("[%s=%s]", s.Key, strconv.Quote(s.Value)) }
func (s TextMatch) String() string        { return ":text(" + strconv.Quote(s.Substring) + ")" }
func (s DisplayNameMatch) String() string { return ":display-name(" + strconv.Quote(s.Name) + ")" }
func (HasPress) String() string           { return ":has-press" }
func (HasScroll) String() string          { return ":has-scroll" }
func (s Nth) String() string              { return ":nth(" + strconv.Itoa(s.Index) + ")" }
func (First) String() string              { return ":first" }
func (Last) String() string               { return ":last" }
func (s Child) String() string            { return s.Parent.String() + " > " + s.Child.String() }
func (s Descendant) String() string       { return s.Ancestor.String() + " " + s.Descendant.String() }

func (s Compound) String() string {
	var b strings.Builder
	for _, p := range s.Parts {
		b.WriteString(p.String())
	}
	return b.String()
}

func (s Or) String() string {
	parts := make([]string, len(s.Alternatives))
	for i, a := range s.Alternatives {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// isPositional reports whether s selects by position rather than by property.
func isPositional(s Selector) bool {
	switch s.(type) {
	case Nth, First, Last:
		return true
	}
	return false
}
