package evtxxml

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeUTF8SelfClosingEmpty(t *testing.T) {
	tag := NewTag("Empty")
	assert.Equal(t, "<Empty/>\n", SerializeUTF8(tag))
}

func TestSerializeUTF8InlineText(t *testing.T) {
	tag := NewTag("Provider")
	tag.AddAttr("Name", "Test")
	tag.AddText("hello")
	assert.Equal(t, `<Provider Name="Test">hello</Provider>`+"\n", SerializeUTF8(tag))
}

func TestSerializeUTF8NestedElements(t *testing.T) {
	root := NewTag("Event")
	sys := NewTag("System")
	sys.AddText("x")
	root.AddChild(sys)

	want := "<Event>\n  <System>x</System>\n</Event>\n"
	assert.Equal(t, want, SerializeUTF8(root))
}

func TestSerializeUTF8EscapesText(t *testing.T) {
	tag := NewTag("Data")
	tag.AddText("a < b & c > d")
	assert.Equal(t, "<Data>a &lt; b &amp; c &gt; d</Data>\n", SerializeUTF8(tag))
}

func TestSerializeUTF8EscapesAttrs(t *testing.T) {
	tag := NewTag("Data")
	tag.AddAttr("v", `say "hi"`)
	assert.Equal(t, `<Data v="say &quot;hi&quot;"/>`+"\n", SerializeUTF8(tag))
}

func TestSerializeUTF8CDATA(t *testing.T) {
	tag := NewTag("Data")
	tag.AddCDATA("<raw>")
	assert.Equal(t, "<Data><![CDATA[<raw>]]></Data>\n", SerializeUTF8(tag))
}

func TestSerializeUTF8CharRefAndEntityRef(t *testing.T) {
	tag := NewTag("Data")
	tag.AddCharRef(65)
	tag.AddEntityRef("amp")
	assert.Equal(t, "<Data>&#65;&amp;</Data>\n", SerializeUTF8(tag))
}

func TestSerializeUTF16RoundTripsToUTF8(t *testing.T) {
	root := NewTag("Event")
	sys := NewTag("System")
	sys.AddText("hello")
	root.AddChild(sys)

	u8 := SerializeUTF8(root)
	u16 := SerializeUTF16(root)

	require.GreaterOrEqual(t, len(u16), 2)
	assert.Equal(t, byte(0xFF), u16[0])
	assert.Equal(t, byte(0xFE), u16[1])

	units := make([]uint16, (len(u16)-2)/2)
	for i := range units {
		units[i] = uint16(u16[2+2*i]) | uint16(u16[2+2*i+1])<<8
	}
	decoded := string(utf16.Decode(units))
	assert.Equal(t, u8, decoded)
}
