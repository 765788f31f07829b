package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFalsey(t *testing.T) {
	require.True(t, NilValue.IsFalsey())
	require.True(t, False.IsFalsey())
	require.False(t, True.IsFalsey())
	require.False(t, NewNumber(0).IsFalsey())
	require.False(t, NewObject(RefAt(0)).IsFalsey())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"nil", NilValue, NilValue, true},
		{"bools", True, NewBool(true), true},
		{"bool mismatch", True, False, false},
		{"numbers", NewNumber(1.5), NewNumber(1.5), true},
		{"number mismatch", NewNumber(1), NewNumber(2), false},
		{"nan", NewNumber(math.NaN()), NewNumber(math.NaN()), false},
		{"kind mismatch", NewNumber(0), False, false},
		{"nil vs false", NilValue, False, false},
		{"same ref", NewObject(3), NewObject(3), true},
		{"different ref", NewObject(3), NewObject(4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Equal(tt.a, tt.b))
		})
	}
}

func TestAccessors(t *testing.T) {
	n, ok := NewNumber(4).AsNumber()
	require.True(t, ok)
	require.Equal(t, 4.0, n)

	_, ok = True.AsNumber()
	require.False(t, ok)

	b, ok := True.AsBool()
	require.True(t, ok)
	require.True(t, b)

	_, ok = NilValue.AsRef()
	require.False(t, ok)

	ref, ok := NewObject(RefAt(9)).AsRef()
	require.True(t, ok)
	require.Equal(t, 9, ref.Index())
	require.True(t, ref.Valid())
	require.False(t, NoRef.Valid())
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		7:           "7",
		-3:          "-3",
		2.5:         "2.5",
		0.1 + 0.2:   "0.30000000000000004",
		1e21:        "1e+21",
		math.Inf(1): "inf",
	}
	for n, expected := range tests {
		require.Equal(t, expected, FormatNumber(n))
	}
	require.Equal(t, "nan", FormatNumber(math.NaN()))
}

func TestString(t *testing.T) {
	require.Equal(t, "nil", NilValue.String())
	require.Equal(t, "true", True.String())
	require.Equal(t, "false", False.String())
	require.Equal(t, "12", NewNumber(12).String())
	require.Equal(t, "number", Number.String())
}
