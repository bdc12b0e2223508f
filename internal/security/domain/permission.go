package domain

// SystemPermission is a cluster-wide capability not scoped to any table.
type SystemPermission string

const (
	// SystemPermissionSystem marks the caller as a trusted cluster
	// participant: tablet loads, shutdown, system property changes.
	SystemPermissionSystem SystemPermission = "system"

	// SystemPermissionCreateTable allows creating tables.
	SystemPermissionCreateTable SystemPermission = "create-table"

	// SystemPermissionDropTable allows dropping any table.
	SystemPermissionDropTable SystemPermission = "drop-table"

	// SystemPermissionAlterTable allows altering any table.
	SystemPermissionAlterTable SystemPermission = "alter-table"

	// SystemPermissionCreateUser allows creating users.
	SystemPermissionCreateUser SystemPermission = "create-user"

	// SystemPermissionAlterUser allows changing other users' authorizations.
	SystemPermissionAlterUser SystemPermission = "alter-user"

	// SystemPermissionDropUser allows deleting users.
	SystemPermissionDropUser SystemPermission = "drop-user"

	// SystemPermissionGrant allows granting and revoking the other system
	// permissions. GRANT itself can never be granted or revoked.
	SystemPermissionGrant SystemPermission = "grant"
)

// SystemPermissions returns all system permissions in a stable order.
func SystemPermissions() []SystemPermission {
	return []SystemPermission{
		SystemPermissionSystem,
		SystemPermissionCreateTable,
		SystemPermissionDropTable,
		SystemPermissionAlterTable,
		SystemPermissionCreateUser,
		SystemPermissionAlterUser,
		SystemPermissionDropUser,
		SystemPermissionGrant,
	}
}

// Valid reports whether p is a member of the closed enum.
func (p SystemPermission) Valid() bool {
	switch p {
	case SystemPermissionSystem, SystemPermissionCreateTable,
		SystemPermissionDropTable, SystemPermissionAlterTable,
		SystemPermissionCreateUser, SystemPermissionAlterUser,
		SystemPermissionDropUser, SystemPermissionGrant:
		return true
	}
	return false
}

// String returns the wire representation of the permission.
func (p SystemPermission) String() string { return string(p) }

// ParseSystemPermission converts a string to a SystemPermission.
// The boolean result reports whether the string named a valid permission.
func ParseSystemPermission(s string) (SystemPermission, bool) {
	p := SystemPermission(s)
	return p, p.Valid()
}

// TablePermission is a capability scoped to one named table.
type TablePermission string

const (
	// TablePermissionRead allows scanning a table.
	TablePermissionRead TablePermission = "read"

	// TablePermissionWrite allows writing mutations to a table.
	TablePermissionWrite TablePermission = "write"

	// TablePermissionBulkImport allows bulk-importing files into a table.
	TablePermissionBulkImport TablePermission = "bulk-import"

	// TablePermissionAlterTable allows altering a table's configuration.
	TablePermissionAlterTable TablePermission = "alter-table"

	// TablePermissionGrant allows granting and revoking table permissions
	// on the table.
	TablePermissionGrant TablePermission = "grant"

	// TablePermissionDropTable allows dropping the table.
	TablePermissionDropTable TablePermission = "drop-table"
)

// TablePermissions returns all table permissions in a stable order.
func TablePermissions() []TablePermission {
	return []TablePermission{
		TablePermissionRead,
		TablePermissionWrite,
		TablePermissionBulkImport,
		TablePermissionAlterTable,
		TablePermissionGrant,
		TablePermissionDropTable,
	}
}

// Valid reports whether p is a member of the closed enum.
func (p TablePermission) Valid() bool {
	switch p {
	case TablePermissionRead, TablePermissionWrite, TablePermissionBulkImport,
		TablePermissionAlterTable, TablePermissionGrant, TablePermissionDropTable:
		return true
	}
	return false
}

// String returns the wire representation of the permission.
func (p TablePermission) String() string { return string(p) }

// ParseTablePermission converts a string to a TablePermission.
// The boolean result reports whether the string named a valid permission.
func ParseTablePermission(s string) (TablePermission, bool) {
	p := TablePermission(s)
	return p, p.Valid()
}
