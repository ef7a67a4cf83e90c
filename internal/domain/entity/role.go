package entity

import "strings"

// Role is the discriminator selecting which partition and payload an account belongs to.
// It is fixed at registration.
type Role string

const (
	RolePatient    Role = "patient"
	RoleClinic     Role = "clinic"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
)

// Roles lists every partition in resolver probe order
var Roles = []Role{RolePatient, RoleClinic, RoleDoctor, RolePharmacist}

// ParseRole normalizes s and reports whether it names a known role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) String() string { return string(r) }
