package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashtag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chemical", "#Chemical"},
		{"Oil and Gas", "#OilandGas"},
		{"  Supply\tChain ", "#SupplyChain"},
		{"#SaaS", "#SaaS"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Hashtag(tt.in), tt.in)
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{}, ParseTags(""))
	assert.Equal(t, []string{"cfo", "finance"}, ParseTags(`["cfo", 'finance']`))
	assert.Equal(t, []string{"a", "b"}, ParseTags("a, ,b"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", " b ", "c"))
	assert.Equal(t, "", FirstNonEmpty(" ", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 10))
	assert.Equal(t, "", Truncate("hi", 0))
}
