package authz

import "github.com/google/uuid"

// Requisition roles. Each role is an independent capability set, not a
// hierarchy: admin_estoque can process stock but cannot approve requests.
const (
	RoleAprendiz     = "aprendiz"
	RoleEstagiario   = "estagiario"
	RoleTecnico      = "tecnico"
	RoleAnalista     = "analista"
	RoleCoordenador  = "coordenador"
	RoleGerente      = "gerente"
	RoleAdminEstoque = "admin_estoque"
	RoleAdmin        = "admin"
)

// Capabilities is the boolean permission set derived from a role
type Capabilities struct {
	CanView          bool `json:"can_view"`
	CanCreateRequest bool `json:"can_create_request"`
	CanRegisterStock bool `json:"can_register_stock"`
	CanEditOwn       bool `json:"can_edit_own"`
	CanApprove       bool `json:"can_approve"`
	CanProcessStock  bool `json:"can_process_stock"`
	CanManageUsers   bool `json:"can_manage_users"`
}

// matrix is the single source of truth for role capabilities. Every caller
// (middleware gate, service check, /me payload) resolves flags here instead of
// re-declaring role lists at the call site.
var matrix = map[string]Capabilities{
	RoleAprendiz:   {CanView: true},
	RoleEstagiario: {CanView: true},
	RoleTecnico:    {CanView: true, CanCreateRequest: true, CanEditOwn: true},
	RoleAnalista:   {CanView: true, CanCreateRequest: true, CanEditOwn: true},
	RoleCoordenador: {
		CanView: true, CanCreateRequest: true, CanEditOwn: true, CanApprove: true,
	},
	RoleGerente: {
		CanView: true, CanCreateRequest: true, CanEditOwn: true, CanApprove: true,
	},
	RoleAdminEstoque: {
		CanView: true, CanCreateRequest: true, CanEditOwn: true,
		CanRegisterStock: true, CanProcessStock: true,
	},
	RoleAdmin: {
		CanView: true, CanCreateRequest: true, CanRegisterStock: true,
		CanEditOwn: true, CanApprove: true, CanProcessStock: true, CanManageUsers: true,
	},
}

// Roles returns all valid role names
func Roles() []string {
	return []string{
		RoleAprendiz, RoleEstagiario, RoleTecnico, RoleAnalista,
		RoleCoordenador, RoleGerente, RoleAdminEstoque, RoleAdmin,
	}
}

// ValidRole reports whether name is a known role
func ValidRole(name string) bool {
	_, ok := matrix[name]
	return ok
}

// CapabilitiesFor returns the capability set of a role. Unknown roles get the
// zero set (deny everything).
func CapabilitiesFor(role string) Capabilities {
	return matrix[role]
}

// Has resolves a capability flag by its wire name, e.g. "can_approve".
// Used by the HTTP middleware so route declarations stay string-based.
func Has(role, capability string) bool {
	caps := CapabilitiesFor(role)
	switch capability {
	case "can_view":
		return caps.CanView
	case "can_create_request":
		return caps.CanCreateRequest
	case "can_register_stock":
		return caps.CanRegisterStock
	case "can_edit_own":
		return caps.CanEditOwn
	case "can_approve":
		return caps.CanApprove
	case "can_process_stock":
		return caps.CanProcessStock
	case "can_manage_users":
		return caps.CanManageUsers
	}
	return false
}

// Actor is an immutable snapshot of the authenticated participant: identity,
// role and the capability set computed once from the matrix. It is built from
// the session token, never from client-supplied fields.
type Actor struct {
	ID           uuid.UUID
	Role         string
	Capabilities Capabilities
}

// NewActor builds an Actor, resolving capabilities from the role matrix
func NewActor(id uuid.UUID, role string) Actor {
	return Actor{ID: id, Role: role, Capabilities: CapabilitiesFor(role)}
}
