package errz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	names := []string{"count", "counter", "amount", "clock", "total"}
	require.Equal(t, []string{"count"}, Suggest("cuont", names))
	require.Equal(t, []string{"count", "counter", "amount"}, Suggest("countr", names))
	require.Nil(t, Suggest("", names))
	require.Nil(t, Suggest("x", nil))
	require.Empty(t, Suggest("zzzzzz", names))
	// Exact matches and duplicates are not suggestions
	require.Equal(t, []string{"clocks"}, Suggest("clock", []string{"clock", "clocks", "clocks"}))
}

func TestSuggestLimit(t *testing.T) {
	got := Suggest("abcd", []string{"abce", "abcf", "abcg", "abch"})
	require.Equal(t, []string{"abce", "abcf", "abcg"}, got)
}

func TestHint(t *testing.T) {
	require.Equal(t, "", Hint(nil))
	require.Equal(t, "Did you mean 'count'?", Hint([]string{"count"}))
	require.Equal(t, "Did you mean one of: 'a', 'b'?", Hint([]string{"a", "b"}))
}

func TestFriendlyMessageIncludesHint(t *testing.T) {
	err := NewRuntimeError(ErrName, []StackFrame{{Function: "script", Line: 1}}, "Undefined variable 'cuont'.").
		WithHint("Did you mean 'count'?")
	require.Equal(t, "Undefined variable 'cuont'.\n[line 1] in script", err.Error())
	require.Equal(t, "name error: Undefined variable 'cuont'.\n[line 1] in script\nDid you mean 'count'?", err.FriendlyErrorMessage())
}

func TestEditDistance(t *testing.T) {
	require.Equal(t, 0, editDistance("same", "same"))
	require.Equal(t, 3, editDistance("kitten", "sitting"))
	require.Equal(t, 4, editDistance("", "four"))
}
