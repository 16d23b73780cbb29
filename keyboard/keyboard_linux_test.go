//go:build linux

package keyboard

import (
	"testing"

	"github.com/bendahl/uinput"
	"github.com/stretchr/testify/assert"
)

func TestUSLayoutCoversPayloadAlphabet(t *testing.T) {
	for _, r := range ";0123456789?=%^_abcXYZ" {
		_, ok := usLayout[r]
		assert.True(t, ok, "missing key for %q", r)
	}

	assert.Equal(t, stroke{uinput.KeySlash, true}, usLayout['?'])
	assert.Equal(t, stroke{uinput.KeySemicolon, false}, usLayout[';'])
	assert.Equal(t, stroke{uinput.Key0, false}, usLayout['0'])
	assert.Equal(t, stroke{uinput.Key9, false}, usLayout['9'])
	assert.Equal(t, stroke{uinput.KeyQ, true}, usLayout['Q'])

	_, ok := usLayout['é']
	assert.False(t, ok)
}
