package domain

// Role is the closed set of platform roles. The hierarchy is a total order
// modeled as an integer rank comparison, not inheritance.
type Role string

const (
	RoleSuperadmin    Role = "SUPERADMIN"
	RoleAdminEmpresa  Role = "ADMIN_EMPRESA"
	RoleAdminSucursal Role = "ADMIN_SUCURSAL"
	RoleEmpleado      Role = "EMPLEADO"
)

// roleRank orders roles; higher outranks lower. Unknown roles rank below
// every real role so a zero or corrupted value never gains access.
var roleRank = map[Role]int{
	RoleEmpleado:      1,
	RoleAdminSucursal: 2,
	RoleAdminEmpresa:  3,
	RoleSuperadmin:    4,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r outranks or equals other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// IsAdmin reports whether the role can perform branch administration.
func (r Role) IsAdmin() bool {
	return r.AtLeast(RoleAdminSucursal)
}
