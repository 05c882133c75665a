package evtxxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagAccessors(t *testing.T) {
	tag := NewTag("Event")
	tag.AddAttr("Name", "x")
	child := NewTag("System")
	tag.AddChild(child)
	tag.AddText("hello")
	tag.AddCDATA(" world")

	v, ok := tag.Attr("Name")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = tag.Attr("Missing")
	assert.False(t, ok)

	assert.Equal(t, child, tag.Child("System"))
	assert.Nil(t, tag.Child("Nope"))

	assert.Equal(t, "hello world", tag.TextContent())
}

func TestChildrenNamed(t *testing.T) {
	tag := NewTag("Root")
	tag.AddChild(NewTag("Data"))
	tag.AddChild(NewTag("Data"))
	tag.AddChild(NewTag("Other"))

	kids := tag.ChildrenNamed("Data")
	assert.Len(t, kids, 2)
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewTag("Root")
	orig.AddAttr("a", "1")
	child := NewTag("Child")
	child.AddText("text")
	orig.AddChild(child)

	clone := orig.Clone()

	// mutate original, clone must be unaffected
	orig.Attrs[0].Value = "mutated"
	orig.Children[0].Elem.Name = "Renamed"

	assert.Equal(t, "1", clone.Attrs[0].Value)
	assert.Equal(t, "Child", clone.Children[0].Elem.Name)
}

func TestCloneNil(t *testing.T) {
	var tag *Tag
	assert.Nil(t, tag.Clone())
}
