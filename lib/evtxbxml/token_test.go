package evtxbxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTokenBasic(t *testing.T) {
	buf := []byte{byte(OpOpenStartElement)}
	tok, err := readToken(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, OpOpenStartElement, tok.Opcode)
	assert.False(t, tok.HasMore)
}

func TestReadTokenHasMoreBit(t *testing.T) {
	buf := []byte{byte(OpAttribute) | 0x40}
	tok, err := readToken(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, OpAttribute, tok.Opcode)
	assert.True(t, tok.HasMore)
}

func TestReadTokenOutOfBounds(t *testing.T) {
	_, err := readToken([]byte{0x01}, 5)
	assert.Error(t, err)
}

func TestReadTokenInvalidOpcode(t *testing.T) {
	// 0x3F is not among the valid low-6-bit opcodes (max valid is 0x0F)
	_, err := readToken([]byte{0x3F}, 0)
	assert.Error(t, err)
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "OpenStartElement", OpOpenStartElement.String())
	assert.Contains(t, Opcode(0x3F).String(), "0x3f")
}
