package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("strips sub-second precision", func(t *testing.T) {
		in := time.Date(2025, 11, 10, 14, 0, 0, 987654321, time.UTC)
		out := Normalize(in)
		assert.Equal(t, time.Date(2025, 11, 10, 14, 0, 0, 0, time.UTC), out)
	})

	t.Run("converts to UTC", func(t *testing.T) {
		sp := time.FixedZone("America/Sao_Paulo", -3*60*60)
		in := time.Date(2025, 11, 10, 11, 0, 0, 0, sp)
		out := Normalize(in)
		assert.Equal(t, time.UTC, out.Location())
		assert.Equal(t, time.Date(2025, 11, 10, 14, 0, 0, 0, time.UTC), out)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := time.Date(2025, 3, 1, 8, 30, 12, 500, time.Local)
		assert.Equal(t, Normalize(in), Normalize(Normalize(in)))
	})
}

func TestSameInstant(t *testing.T) {
	sp := time.FixedZone("UTC-3", -3*60*60)
	a := time.Date(2025, 11, 10, 14, 0, 0, 123, time.UTC)
	b := time.Date(2025, 11, 10, 11, 0, 0, 456, sp)

	assert.True(t, SameInstant(a, b))
	assert.False(t, SameInstant(a, b.Add(time.Second)))
}
