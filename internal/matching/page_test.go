package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageable(t *testing.T) {
	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		p := NewPageable(0, -5)
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultSize, p.Size)
	})

	t.Run("offset is page minus one times size", func(t *testing.T) {
		p := NewPageable(3, 20)
		assert.Equal(t, 40, p.Offset())
		assert.Equal(t, 20, p.Limit())
	})
}

func TestPage(t *testing.T) {
	t.Run("total pages rounds up", func(t *testing.T) {
		p := Page[int]{Total: 21, Pageable: NewPageable(1, 10)}
		assert.Equal(t, 3, p.TotalPages())
	})

	t.Run("navigation flags", func(t *testing.T) {
		middle := Page[int]{Total: 30, Pageable: NewPageable(2, 10)}
		assert.True(t, middle.HasNext())
		assert.True(t, middle.HasPrev())

		last := Page[int]{Total: 30, Pageable: NewPageable(3, 10)}
		assert.False(t, last.HasNext())
	})
}
