package control

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// keyNames maps wire key names to injector key names. Modifiers,
// navigation keys and f1-f12 are fixed; any single printable character
// passes through verbatim; everything else resolves to no-op.
var keyNames = map[string]string{
	"shift":     "shift",
	"ctrl":      "ctrl",
	"alt":       "alt",
	"enter":     "enter",
	"backspace": "backspace",
	"tab":       "tab",
	"escape":    "esc",
	"space":     "space",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"delete":    "delete",
	"home":      "home",
	"end":       "end",
	"page_up":   "pageup",
	"page_down": "pagedown",
}

func init() {
	for _, f := range []string{"f1", "f2", "f3", "f4", "f5", "f6",
		"f7", "f8", "f9", "f10", "f11", "f12"} {
		keyNames[f] = f
	}
}

// ResolveKey returns the injector key name for a wire key name, or ""
// when the key should be ignored.
func ResolveKey(name string) string {
	lower := strings.ToLower(name)
	if mapped, ok := keyNames[lower]; ok {
		return mapped
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return strings.ToLower(name)
		}
	}
	return ""
}
