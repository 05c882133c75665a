// Package evtxxml implements the in-memory XML tag tree that the
// BXML document builder materializes into, and its UTF-8/UTF-16
// serializers (spec component C3).
//
// The tree is a pure tree: a Tag exclusively owns its Attrs and
// Children slices, there are no parent back-pointers and no shared
// subtrees. Template substitution deep-clones whatever subtree it
// expands into (see evtxbxml.Builder), so this package never has to
// reason about aliasing.
package evtxxml

// Attr is a single (name, value) attribute pair. Value is already the
// final rendered text — entity escaping happens at serialization time,
// not here, so that Value can be inspected (e.g. by record accessors)
// without undoing escaping.
type Attr struct {
	Name  string
	Value string

	// Sub is non-nil while an attribute's value is an unresolved
	// template placeholder (spec §4.4.3/§4.4.4); Value is meaningless
	// until the builder resolves it against a value array, at which
	// point Sub is cleared (or, for an elided optional NULL, the
	// whole Attr is dropped from Attrs — see evtxbxml's resolveTree).
	Sub *Node
}

// Node is either a child Tag or a run of character data; Kind selects
// which of the Elem, Text, CharRefCP, EntityName, PITarget/PIData or
// Sub* fields are meaningful.
type NodeKind int

const (
	KindElement NodeKind = iota
	KindText
	KindCDATA
	KindCharRef // rendered as &#d;
	KindEntityRef
	KindPI
	// KindSubstitution marks an unresolved template placeholder; it
	// only ever appears while a template skeleton is being parsed
	// without a value array in scope (spec §4.4.1), and is always
	// replaced (or, for an elided optional attribute, removed) before
	// the tree is handed back to a caller.
	KindSubstitution
)

type Node struct {
	Kind NodeKind
	Elem *Tag

	// KindText / KindCDATA: literal (unescaped) character data.
	Text string

	// KindCharRef: the numeric codepoint.
	CharRefCP uint16

	// KindEntityRef: the entity name (without & ;).
	EntityName string

	// KindPI: processing-instruction target and data.
	PITarget string
	PIData   string

	// KindSubstitution: the placeholder's identifier, declared type,
	// and whether it's the optional (elidable) form.
	SubID       uint16
	SubType     byte
	SubOptional bool
}

// Tag is an XML element: a name, an ordered attribute list, and
// ordered children (mixed element/text content).
type Tag struct {
	Name     string
	Attrs    []Attr
	Children []Node
	// XMLNS, if non-empty, is promoted out of Attrs during
	// serialization and emitted as xmlns="...".
	XMLNS string
}

// NewTag constructs an empty element with the given name.
func NewTag(name string) *Tag {
	return &Tag{Name: name}
}

// AddAttr appends an attribute. Elision (spec §4.4.4) is the caller's
// responsibility: don't call AddAttr for an elided optional attribute.
func (t *Tag) AddAttr(name, value string) {
	t.Attrs = append(t.Attrs, Attr{Name: name, Value: value})
}

// AddChild appends a child element and returns it, for chained
// construction during BXML materialization.
func (t *Tag) AddChild(child *Tag) *Tag {
	t.Children = append(t.Children, Node{Kind: KindElement, Elem: child})
	return child
}

func (t *Tag) AddText(text string) {
	t.Children = append(t.Children, Node{Kind: KindText, Text: text})
}

func (t *Tag) AddCDATA(text string) {
	t.Children = append(t.Children, Node{Kind: KindCDATA, Text: text})
}

func (t *Tag) AddCharRef(cp uint16) {
	t.Children = append(t.Children, Node{Kind: KindCharRef, CharRefCP: cp})
}

func (t *Tag) AddEntityRef(name string) {
	t.Children = append(t.Children, Node{Kind: KindEntityRef, EntityName: name})
}

func (t *Tag) AddPI(target, data string) {
	t.Children = append(t.Children, Node{Kind: KindPI, PITarget: target, PIData: data})
}

// Attr looks up the first attribute with the given name.
func (t *Tag) Attr(name string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child element with the given name.
func (t *Tag) Child(name string) *Tag {
	for _, n := range t.Children {
		if n.Kind == KindElement && n.Elem.Name == name {
			return n.Elem
		}
	}
	return nil
}

// ChildrenNamed returns all child elements with the given name, in
// document order.
func (t *Tag) ChildrenNamed(name string) []*Tag {
	var out []*Tag
	for _, n := range t.Children {
		if n.Kind == KindElement && n.Elem.Name == name {
			out = append(out, n.Elem)
		}
	}
	return out
}

// TextContent concatenates all direct KindText/KindCDATA children
// (not recursing into child elements), which is what the record
// accessors in spec §4.6 mean by "<Element> text".
func (t *Tag) TextContent() string {
	var out []byte
	for _, n := range t.Children {
		switch n.Kind {
		case KindText, KindCDATA:
			out = append(out, n.Text...)
		}
	}
	return string(out)
}

// Clone deep-copies the subtree rooted at t. Used when a template
// instance's skeleton (shared, refcounted, chunk-scoped) is expanded
// into a record's own tree.
func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	out := &Tag{
		Name:  t.Name,
		XMLNS: t.XMLNS,
	}
	if t.Attrs != nil {
		out.Attrs = append([]Attr(nil), t.Attrs...)
	}
	if t.Children != nil {
		out.Children = make([]Node, len(t.Children))
		for i, n := range t.Children {
			out.Children[i] = n
			if n.Kind == KindElement {
				out.Children[i].Elem = n.Elem.Clone()
			}
		}
	}
	return out
}
