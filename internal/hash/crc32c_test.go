package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value of the Castagnoli polynomial.
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
	assert.True(t, Verify([]byte("octogo"), CRC32C([]byte("octogo"))))
	assert.False(t, Verify([]byte("octogo"), 0))
}
