package auth

import "strings"

type StaffRole string

const (
	RoleAdmin   StaffRole = "ADMIN"
	RoleManager StaffRole = "MANAGER"
	RoleWaiter  StaffRole = "WAITER"
	RoleKitchen StaffRole = "KITCHEN"
	RoleCashier StaffRole = "CASHIER"
)

func (r StaffRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleWaiter, RoleKitchen, RoleCashier:
		return true
	}
	return false
}

func ParseRole(value string) (StaffRole, bool) {
	role := StaffRole(strings.ToUpper(strings.TrimSpace(value)))
	return role, role.Valid()
}

// HasRole reports whether role is one of allowed. An empty allow list admits
// every staff role.
func HasRole(role StaffRole, allowed ...StaffRole) bool {
	if len(allowed) == 0 {
		return role.Valid()
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}

var (
	TableManagers = []StaffRole{RoleAdmin, RoleManager}
	BillingRoles  = []StaffRole{RoleAdmin, RoleManager, RoleCashier}
)
