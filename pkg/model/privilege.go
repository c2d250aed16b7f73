package model

// Privilege is one grantable right. The set is closed; which privileges make
// sense for which object kind is the caller's business (EXECUTE on a table
// will simply fail at the target)
type Privilege string

const (
	PrivilegeSelect  Privilege = "SELECT"
	PrivilegeInsert  Privilege = "INSERT"
	PrivilegeUpdate  Privilege = "UPDATE"
	PrivilegeDelete  Privilege = "DELETE"
	PrivilegeExecute Privilege = "EXECUTE"
	PrivilegeUsage   Privilege = "USAGE"
	PrivilegeRead    Privilege = "READ"
)

// GroupPrivilege grants one privilege to one grant group. At apply time each
// pair expands to a single GRANT against the owning object. Attaching the
// same pair twice is not deduplicated; callers must not do it
type GroupPrivilege struct {
	Group     string
	Privilege Privilege
}

// GroupPrivileges builds the pairs for granting several privileges to one
// group
func GroupPrivileges(group string, privileges ...Privilege) []GroupPrivilege {
	pairs := make([]GroupPrivilege, 0, len(privileges))
	for _, p := range privileges {
		pairs = append(pairs, GroupPrivilege{Group: group, Privilege: p})
	}
	return pairs
}
