package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionLess(t *testing.T) {
	assert.True(t, VersionLess([]byte("1.0"), []byte("1.1")))
	assert.False(t, VersionLess([]byte("1.1"), []byte("1.1")))
	assert.False(t, VersionLess([]byte("1.1"), []byte("1.0")))
	assert.True(t, VersionLess(nil, []byte("1.0")))
	assert.True(t, VersionLess([]byte("0.9"), []byte("1.0")))
}
