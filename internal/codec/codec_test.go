package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

func TestHashIgnoresMapInsertionOrder(t *testing.T) {
	a := map[string]any{}
	a["steps"] = "open"
	a["severity"] = "high"
	b := map[string]any{}
	b["severity"] = "high"
	b["steps"] = "open"

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestHashSeesSubSecondChanges(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	first := domain.Ticket{ID: "t", UpdatedAt: at}
	second := domain.Ticket{ID: "t", UpdatedAt: at.Add(time.Millisecond)}

	h1, err := Hash(first)
	require.NoError(t, err)
	h2, err := Hash(second)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestDecodeContentAsStringMap(t *testing.T) {
	data, err := Marshal(map[string]any{"content": map[string]any{"done": true}})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, Unmarshal(data, &out))
	inner, ok := out["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, inner["done"])
}
