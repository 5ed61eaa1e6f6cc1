package companion

import (
	"strings"

	"github.com/theimaginaryfoundation/pet-companion/companion/fileutils"
)

// ToContext renders memories, in the order given, one per line:
//
//	- [schedule] 아침 산책: 매일 아침 8시에 산책한다 (daily 08:00)
//
// The parenthetical appears only when the memory has a clock time. An empty
// input renders as "" so callers can skip the section entirely.
func ToContext(memories []PetMemory) string {
	if len(memories) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range memories {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- [")
		b.WriteString(string(m.MemoryType))
		b.WriteString("] ")
		b.WriteString(fileutils.FlattenLine(m.Title))
		b.WriteString(": ")
		b.WriteString(fileutils.FlattenLine(m.Content))
		if m.TimeInfo != nil && m.TimeInfo.Time != "" {
			b.WriteString(" (")
			b.WriteString(string(m.TimeInfo.Type))
			b.WriteByte(' ')
			b.WriteString(m.TimeInfo.Time)
			b.WriteByte(')')
		}
	}
	return b.String()
}
