// Package hid maps scripted key names to USB HID usage codes.
//
// The name set and its exact string literals are the compatibility surface
// scripts depend on: modifiers are CTRL, SHIFT, ALT and GUI (with RIGHT_
// variants), named keys are uppercase (ENTER, ESC, F1..F12, arrows) and
// printable keys are the single character itself. Lookup validates at call
// time and fails on unknown names.
package hid

import (
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// A code packs the HID modifier byte into the high byte and the usage ID
// into the low byte, so a combo like CTRL+c is a single uint16.
const (
	// ModCtrl is the left-control modifier mask.
	ModCtrl uint16 = 0x0100
	// ModShift is the left-shift modifier mask.
	ModShift uint16 = 0x0200
	// ModAlt is the left-alt modifier mask.
	ModAlt uint16 = 0x0400
	// ModGui is the left-GUI (meta) modifier mask.
	ModGui uint16 = 0x0800
	// ModRightCtrl is the right-control modifier mask.
	ModRightCtrl uint16 = 0x1000
	// ModRightShift is the right-shift modifier mask.
	ModRightShift uint16 = 0x2000
	// ModRightAlt is the right-alt modifier mask.
	ModRightAlt uint16 = 0x4000
	// ModRightGui is the right-GUI modifier mask.
	ModRightGui uint16 = 0x8000
)

// modifiers maps modifier names to their masks. These literals are fixed.
var modifiers = map[string]uint16{
	"CTRL":        ModCtrl,
	"SHIFT":       ModShift,
	"ALT":         ModAlt,
	"GUI":         ModGui,
	"RIGHT_CTRL":  ModRightCtrl,
	"RIGHT_SHIFT": ModRightShift,
	"RIGHT_ALT":   ModRightAlt,
	"RIGHT_GUI":   ModRightGui,
}

// keys maps named keys to HID usage IDs (keyboard/keypad usage page).
var keys = map[string]uint16{
	"ENTER":       0x28,
	"ESC":         0x29,
	"BACKSPACE":   0x2a,
	"TAB":         0x2b,
	"SPACE":       0x2c,
	"CAPSLOCK":    0x39,
	"F1":          0x3a,
	"F2":          0x3b,
	"F3":          0x3c,
	"F4":          0x3d,
	"F5":          0x3e,
	"F6":          0x3f,
	"F7":          0x40,
	"F8":          0x41,
	"F9":          0x42,
	"F10":         0x43,
	"F11":         0x44,
	"F12":         0x45,
	"PRINTSCREEN": 0x46,
	"SCROLLLOCK":  0x47,
	"PAUSE":       0x48,
	"INSERT":      0x49,
	"HOME":        0x4a,
	"PAGEUP":      0x4b,
	"DELETE":      0x4c,
	"END":         0x4d,
	"PAGEDOWN":    0x4e,
	"RIGHT":       0x4f,
	"LEFT":        0x50,
	"DOWN":        0x51,
	"UP":          0x52,
	"NUMLOCK":     0x53,
	"MENU":        0x65,
}

func init() {
	// Printable keys: lowercase letters and digits, named by the character
	// itself.
	for r := 'a'; r <= 'z'; r++ {
		keys[string(r)] = uint16(0x04 + r - 'a')
	}
	for r := '1'; r <= '9'; r++ {
		keys[string(r)] = uint16(0x1e + r - '1')
	}
	keys["0"] = 0x27
}

// UnknownKeyError reports a key name with no table entry.
type UnknownKeyError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key name %q", e.Name)
}

// Code resolves a key or modifier name to its packed code.
//
// The name is NFC-normalized first: scripted input may arrive in any Unicode
// normalization form, and table entries are plain ASCII either way.
func Code(name string) (uint16, error) {
	n := norm.NFC.String(name)
	if c, ok := modifiers[n]; ok {
		return c, nil
	}
	if c, ok := keys[n]; ok {
		return c, nil
	}
	return 0, &UnknownKeyError{Name: name}
}

// IsModifier reports whether name resolves to a modifier mask.
func IsModifier(name string) bool {
	_, ok := modifiers[norm.NFC.String(name)]
	return ok
}

// Combo folds any number of modifier names and at most one key name into a
// single packed code.
//
//	Combo("CTRL", "ALT", "DELETE") // ModCtrl|ModAlt|0x4c
//
// A second non-modifier key, or any unknown name, is an error.
func Combo(names ...string) (uint16, error) {
	if len(names) == 0 {
		return 0, fmt.Errorf("combo requires at least one key name")
	}

	var combined uint16
	haveKey := false
	for _, name := range names {
		c, err := Code(name)
		if err != nil {
			return 0, err
		}
		if IsModifier(name) {
			combined |= c
			continue
		}
		if haveKey {
			return 0, fmt.Errorf("combo may contain at most one non-modifier key, got second key %q", name)
		}
		haveKey = true
		combined |= c
	}
	return combined, nil
}

// Names returns every known key and modifier name, sorted.
func Names() []string {
	out := make([]string, 0, len(modifiers)+len(keys))
	for n := range modifiers {
		out = append(out, n)
	}
	for n := range keys {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
