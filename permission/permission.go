package permission

// Permission is a single capability bit. Values may be OR-ed together when a
// check needs several capabilities at once.
type Permission uint32

const (
	Follow   Permission = 1 << iota // 1
	Comment                         // 2
	Write                           // 4
	Moderate                        // 8
	Admin                           // 16
)

// All is the union of every defined permission.
const All = Follow | Comment | Write | Moderate | Admin

// Mask is a set of permissions as stored on a role.
type Mask uint32

// Has reports whether every bit of perm is present in mask.
func Has(mask Mask, perm Permission) bool {
	return uint32(mask)&uint32(perm) == uint32(perm)
}

// Add returns mask with perm set. Adding a present bit is a no-op.
func Add(mask Mask, perm Permission) Mask {
	return mask | Mask(perm)
}

// Remove returns mask with perm cleared. Removing an absent bit is a no-op.
func Remove(mask Mask, perm Permission) Mask {
	return mask &^ Mask(perm)
}

func (m Mask) Has(perm Permission) bool {
	return Has(m, perm)
}

func (m Mask) Add(perm Permission) Mask {
	return Add(m, perm)
}

func (m Mask) Remove(perm Permission) Mask {
	return Remove(m, perm)
}

// Valid reports whether m only carries defined permission bits.
func (m Mask) Valid() bool {
	return m&^Mask(All) == 0
}

// Valid reports whether p is non-zero and only carries defined bits.
func (p Permission) Valid() bool {
	return p != 0 && p&^All == 0
}

// Raw returns the integer form used by storage.
func (m Mask) Raw() uint32 {
	return uint32(m)
}
