package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddAssignsUniqueIDs(t *testing.T) {
	r := newRegistry()

	id1, _, err := r.add(".*")
	require.NoError(t, err)
	id2, _, err := r.add(".*")
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Len(t, r.snapshot(), 2)
}

func TestRegistryInvalidPattern(t *testing.T) {
	r := newRegistry()

	_, _, err := r.add("(unterminated")
	require.Error(t, err)
	var patternErr *PatternError
	assert.ErrorAs(t, err, &patternErr)
	assert.Empty(t, r.snapshot())
}

func TestRegistryRemoveIsIdempotentByEffect(t *testing.T) {
	r := newRegistry()
	id, _, err := r.add(".*")
	require.NoError(t, err)

	assert.NoError(t, r.remove(id))
	assert.ErrorIs(t, r.remove(id), ErrNotFound)
}

func TestRegistryPreservesInsertionOrder(t *testing.T) {
	r := newRegistry()
	idA, _, _ := r.add("a")
	idB, _, _ := r.add("b")
	idC, _, _ := r.add("c")

	subs := r.snapshot()
	require.Len(t, subs, 3)
	assert.Equal(t, []interface{}{idA, idB, idC}, []interface{}{subs[0].id, subs[1].id, subs[2].id})
}
