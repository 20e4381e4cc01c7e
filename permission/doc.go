// Package permission provides the capability bitmask, the permission name
// codec, and the role registry used by flasky authorization checks.
//
// # Bits
//
// Five capabilities are defined: Follow (1), Comment (2), Write (4),
// Moderate (8) and Admin (16). A [Mask] is the OR of any subset. Bit values
// are part of the persisted data and must never be renumbered.
//
// # Roles
//
// A [Role] names a mask. [Bootstrap] reconciles the stored roles with a list
// of [RoleDef] values and flags exactly one of them as the default.
// [AssignRole] picks the role for a newly created account.
//
// # Architecture boundaries
//
// The package does no I/O of its own. Role persistence goes through the
// [RoleStore] interface; transactions are owned by the caller.
//
// # What this package must NOT do
//
//   - Import flasky, storage, or any database driver.
//   - Open or commit transactions.
package permission
