package hid

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_NamedKeys(t *testing.T) {
	cases := map[string]uint16{
		"ENTER": 0x28,
		"ESC":   0x29,
		"F1":    0x3a,
		"F12":   0x45,
		"UP":    0x52,
		"a":     0x04,
		"z":     0x1d,
		"1":     0x1e,
		"0":     0x27,
	}
	for name, want := range cases {
		got, err := Code(name)
		require.NoError(t, err, "key %q", name)
		assert.Equal(t, want, got, "key %q", name)
	}
}

func TestCode_Modifiers(t *testing.T) {
	got, err := Code("CTRL")
	require.NoError(t, err)
	assert.Equal(t, ModCtrl, got)

	got, err = Code("RIGHT_GUI")
	require.NoError(t, err)
	assert.Equal(t, ModRightGui, got)

	assert.True(t, IsModifier("SHIFT"))
	assert.False(t, IsModifier("ENTER"))
	assert.False(t, IsModifier("nope"))
}

func TestCode_UnknownName(t *testing.T) {
	_, err := Code("HYPER")
	require.Error(t, err)

	var uk *UnknownKeyError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, "HYPER", uk.Name)

	// Case matters: the literal surface is exact.
	_, err = Code("enter")
	assert.Error(t, err)
}

func TestCombo(t *testing.T) {
	got, err := Combo("CTRL", "ALT", "DELETE")
	require.NoError(t, err)
	assert.Equal(t, ModCtrl|ModAlt|0x4c, got)

	got, err = Combo("GUI", "l")
	require.NoError(t, err)
	assert.Equal(t, ModGui|0x0f, got)

	// Modifiers alone are valid (held chord without a key).
	got, err = Combo("CTRL", "SHIFT")
	require.NoError(t, err)
	assert.Equal(t, ModCtrl|ModShift, got)

	_, err = Combo()
	assert.Error(t, err)

	_, err = Combo("a", "b")
	assert.Error(t, err, "two non-modifier keys must fail")

	_, err = Combo("CTRL", "NOSUCH")
	assert.Error(t, err)
}

func TestNames_SortedAndComplete(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.True(t, sort.StringsAreSorted(names))

	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"CTRL", "ENTER", "F1", "a", "0"} {
		assert.True(t, seen[want], "missing %q", want)
	}
}
