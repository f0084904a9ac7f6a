package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SortableAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 1000; i++ {
		id := New()
		assert.Len(t, id, 26)
		assert.Greater(t, id, prev)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
		prev = id
	}
}
