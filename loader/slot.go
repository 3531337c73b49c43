package loader

import "strings"

// SlotTag prefixes every derived slot ID.
const SlotTag = "plg:"

// SlotID derives the stable identity for a plugin source location: every
// character outside [A-Za-z0-9:_./-] is replaced by '_' and the result is
// prefixed with SlotTag. Re-deriving for the same source always yields the
// same slot, so reinstalling a plugin lands in its existing slot.
func SlotID(sourceLocation string) string {
	var sb strings.Builder
	sb.Grow(len(SlotTag) + len(sourceLocation))
	sb.WriteString(SlotTag)
	for _, r := range sourceLocation {
		if slotRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func slotRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == ':' || r == '_' || r == '.' || r == '/' || r == '-':
		return true
	}
	return false
}
