package container

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength bounds group names.
const MaxNameLength = 255

// ValidateName checks that a group name can be stored.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &NameError{Name: name, Details: "name is empty"}
	case len(name) > MaxNameLength:
		return &NameError{Name: name, Details: fmt.Sprintf("longer than %d bytes", MaxNameLength)}
	case !utf8.ValidString(name):
		return &NameError{Name: name, Details: "not valid UTF-8"}
	case name == "." || name == "..":
		return &NameError{Name: name, Details: "reserved path component"}
	case strings.ContainsAny(name, `/\`):
		return &NameError{Name: name, Details: "contains a path separator"}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return &NameError{Name: name, Details: "contains control characters"}
		}
	}
	return nil
}

// validateIndex checks a freshly read index against the file it came from.
// Payload regions must be inside the data area and must not overlap each other or the index.
func validateIndex(idx *index, indexOffset, fileSize int64) error {
	seen := make(map[string]struct{}, len(idx.Groups))
	regions := make([]entry, 0, len(idx.Groups))

	for _, g := range idx.Groups {
		if err := ValidateName(g.Name); err != nil {
			return err
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("duplicate group %q", g.Name)
		}
		seen[g.Name] = struct{}{}

		if g.Offset < SuperblockSize || g.PayloadSize < 0 {
			return fmt.Errorf("group %q: invalid payload location %d+%d", g.Name, g.Offset, g.PayloadSize)
		}
		end := g.Offset + g.PayloadSize
		if end > fileSize || end < g.Offset {
			return fmt.Errorf("group %q: payload extends past end of file (%d > %d)", g.Name, end, fileSize)
		}
		if g.Offset < indexOffset && end > indexOffset {
			return fmt.Errorf("group %q: payload overlaps index", g.Name)
		}
		regions = append(regions, g)
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].Offset < regions[j].Offset })
	for i := 1; i < len(regions); i++ {
		prev, cur := regions[i-1], regions[i]
		if prev.Offset+prev.PayloadSize > cur.Offset {
			return fmt.Errorf("group %q overlaps group %q", cur.Name, prev.Name)
		}
	}
	return nil
}
