package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDecodeText verifies invalid UTF-8 is replaced one maximal subpart at a time
func TestDecodeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain €", "plain €"},
		{"a\xe2\x82b", "a�b"},
		{"\xe2\x82", "�"},
		{"\xff\xfe", "��"},
		{"\xe0\x80", "��"},
		{"\xed\xa0\x80", "���"},
		{"\xf0\x9f\x98x", "�x"},
		{"\xc3", "�"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeText([]byte(tt.in)), "%q", tt.in)
	}
}

// TestValueText verifies byte strings decode with the same replacement rule
func TestValueText(t *testing.T) {
	assert.Equal(t, "B�", BytesValue("B\xe2\x82").Text())
	assert.Equal(t, "True", BoolValue(true).Text())
}
