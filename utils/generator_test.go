package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionIDsArePrefixedAndUnique(t *testing.T) {
	ids, err := NewTransactionIDs(7)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := ids.Next("WD")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "WD-"))
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateUniqueCodeSkipsTakenCodes(t *testing.T) {
	calls := 0
	code, err := GenerateUniqueCode(KeyCodeLength, func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Len(t, code, KeyCodeLength)
	assert.Equal(t, 3, calls)
	for _, r := range code {
		assert.Contains(t, keyCodeAlphabet, string(r))
	}
}

func TestGenerateUniqueCodeGivesUp(t *testing.T) {
	_, err := GenerateUniqueCode(4, func(string) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}
