package permission

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPermission is returned when a permission name is not defined.
	ErrUnknownPermission = errors.New("unknown permission")
)

// nameTable lists the permissions in bit order. FormatMask relies on it.
var nameTable = [...]struct {
	name string
	perm Permission
}{
	{"FOLLOW", Follow},
	{"COMMENT", Comment},
	{"WRITE", Write},
	{"MODERATE", Moderate},
	{"ADMIN", Admin},
}

// Lookup returns the permission for name. Matching is case-insensitive.
func Lookup(name string) (Permission, bool) {
	name = strings.TrimSpace(name)
	for _, entry := range nameTable {
		if strings.EqualFold(entry.name, name) {
			return entry.perm, true
		}
	}
	return 0, false
}

// Name returns the canonical name of a single permission bit, or "" when p
// is not exactly one defined bit.
func (p Permission) Name() string {
	for _, entry := range nameTable {
		if entry.perm == p {
			return entry.name
		}
	}
	return ""
}

func (p Permission) String() string {
	if name := p.Name(); name != "" {
		return name
	}
	return FormatMask(Mask(p))
}

func (m Mask) String() string {
	return FormatMask(m)
}

// ParseNames converts a list of permission names to permissions.
func ParseNames(names []string) ([]Permission, error) {
	out := make([]Permission, 0, len(names))
	for _, name := range names {
		perm, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, name)
		}
		out = append(out, perm)
	}
	return out, nil
}

// ParseMask parses a "|" or "," separated list of names such as
// "FOLLOW|COMMENT". Blank input yields the empty mask.
func ParseMask(s string) (Mask, error) {
	var mask Mask
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ','
	})
	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			continue
		}
		perm, ok := Lookup(field)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, strings.TrimSpace(field))
		}
		mask = mask.Add(perm)
	}
	return mask, nil
}

// FormatMask renders m as names joined by "|" in bit order. Undefined bits
// are appended in hex so that they are never silently hidden.
func FormatMask(m Mask) string {
	if m == 0 {
		return ""
	}

	var b strings.Builder
	for _, entry := range nameTable {
		if !m.Has(entry.perm) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(entry.name)
	}

	if extra := m &^ Mask(All); extra != 0 {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "0x%x", uint32(extra))
	}
	return b.String()
}

// Permissions lists the defined bits of m in bit order.
func (m Mask) Permissions() []Permission {
	var out []Permission
	for _, entry := range nameTable {
		if m.Has(entry.perm) {
			out = append(out, entry.perm)
		}
	}
	return out
}
