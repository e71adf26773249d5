package fingerprint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_ShouldNotDependOnWriteBoundaries(t *testing.T) {
	// given
	data := bytes.Repeat([]byte("0123456789abcdef"), 4096)

	// when
	whole := OfBytes(data)
	split := New()
	for offset := 0; offset < len(data); offset += 1000 {
		end := min(offset+1000, len(data))
		split.Write(data[offset:end])
	}

	// then
	assert.Equal(t, whole, split.Fingerprint())
	assert.Len(t, whole, Size*2)
}

func TestOf_ShouldMatchOfBytes(t *testing.T) {
	data := []byte("hello fingerprint")

	fp, err := Of(bytes.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, OfBytes(data), fp)
	assert.NotEqual(t, OfBytes([]byte("hello fingerprinT")), fp)
}
