// Package policy defines the role-based access control model: a static
// Role × Module → Actions matrix, the legacy named-permission view derived
// from it, and the pure decision engine every enforcement point calls.
//
// The matrix is immutable after process start and fails closed: an unknown
// role or module resolves to an empty action set, never an error.
package policy

import (
	"github.com/acmecrm/crm-identity/internal/core/domain"
)

// Module is a functional area of the application, one axis of the matrix.
type Module string

const (
	ModuleDashboard  Module = "dashboard"
	ModuleContacts   Module = "contacts"
	ModuleCompanies  Module = "companies"
	ModuleDeals      Module = "deals"
	ModuleTasks      Module = "tasks"
	ModuleReports    Module = "reports"
	ModuleSettings   Module = "settings"
	ModuleTeam       Module = "team"
	ModuleBilling    Module = "billing"
	ModuleAIFeatures Module = "ai_features"
)

// Modules lists every module in a stable order, for capability listings.
var Modules = []Module{
	ModuleDashboard,
	ModuleContacts,
	ModuleCompanies,
	ModuleDeals,
	ModuleTasks,
	ModuleReports,
	ModuleSettings,
	ModuleTeam,
	ModuleBilling,
	ModuleAIFeatures,
}

// Action is an operation category, the other axis of the matrix.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
	ActionManage Action = "manage"
)

var allActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport, ActionManage}

// matrix maps each role to its permitted actions per module. Modules absent
// for a role grant nothing. This table is the single source of truth; the
// legacy boolean permissions below are derived from it, never authored
// independently.
var matrix = map[domain.Role]map[Module][]Action{
	domain.RoleOwner: {
		ModuleDashboard:  allActions,
		ModuleContacts:   allActions,
		ModuleCompanies:  allActions,
		ModuleDeals:      allActions,
		ModuleTasks:      allActions,
		ModuleReports:    allActions,
		ModuleSettings:   allActions,
		ModuleTeam:       allActions,
		ModuleBilling:    allActions,
		ModuleAIFeatures: allActions,
	},
	domain.RoleAdmin: {
		ModuleDashboard:  allActions,
		ModuleContacts:   allActions,
		ModuleCompanies:  allActions,
		ModuleDeals:      allActions,
		ModuleTasks:      allActions,
		ModuleReports:    allActions,
		ModuleSettings:   allActions,
		ModuleTeam:       allActions,
		ModuleBilling:    {}, // billing is owner-only
		ModuleAIFeatures: allActions,
	},
	domain.RoleManager: {
		ModuleDashboard: {ActionView, ActionExport},
		ModuleContacts:  {ActionView, ActionCreate, ActionEdit, ActionExport},
		ModuleCompanies: {ActionView, ActionCreate, ActionEdit, ActionExport},
		ModuleDeals:     {ActionView, ActionCreate, ActionEdit, ActionExport},
		ModuleTasks:     {ActionView, ActionCreate, ActionEdit, ActionExport},
		ModuleReports:   {ActionView, ActionCreate, ActionExport},
		// Team is view-only: managers see the roster but do not administer
		// user accounts.
		ModuleTeam:       {ActionView},
		ModuleAIFeatures: {ActionView, ActionCreate, ActionEdit},
	},
	domain.RoleSales: {
		ModuleDashboard:  {ActionView},
		ModuleContacts:   {ActionView, ActionCreate, ActionEdit},
		ModuleCompanies:  {ActionView, ActionCreate, ActionEdit},
		ModuleDeals:      {ActionView, ActionCreate, ActionEdit},
		ModuleTasks:      {ActionView, ActionCreate, ActionEdit},
		ModuleReports:    {ActionView},
		ModuleAIFeatures: {ActionView, ActionCreate},
	},
	domain.RoleViewer: {
		ModuleDashboard: {ActionView},
		ModuleContacts:  {ActionView},
		ModuleCompanies: {ActionView},
		ModuleDeals:     {ActionView},
		ModuleTasks:     {ActionView},
		ModuleReports:   {ActionView},
	},
}

// PermissionsFor returns the authorized action set for (role, module).
// Unknown roles and modules yield an empty set.
func PermissionsFor(role domain.Role, module Module) []Action {
	perms, ok := matrix[role]
	if !ok {
		return nil
	}
	actions := perms[module]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// HasPermission reports whether role may perform action on module.
func HasPermission(role domain.Role, module Module, action Action) bool {
	for _, a := range matrix[role][module] {
		if a == action {
			return true
		}
	}
	return false
}

// AllPermissions returns the full capability map for a role, keyed by module.
// Modules granting nothing are present with an empty slice so consumers can
// enumerate the whole surface.
func AllPermissions(role domain.Role) map[Module][]Action {
	out := make(map[Module][]Action, len(Modules))
	for _, m := range Modules {
		out[m] = PermissionsFor(role, m)
	}
	return out
}

// Permission is a coarse named capability, the legacy single-boolean view of
// the matrix.
type Permission string

const (
	CanManageUsers    Permission = "canManageUsers"
	CanManageBilling  Permission = "canManageBilling"
	CanViewAllData    Permission = "canViewAllData"
	CanEditAllData    Permission = "canEditAllData"
	CanDeleteData     Permission = "canDeleteData"
	CanManageSettings Permission = "canManageSettings"
	CanExportData     Permission = "canExportData"
)

// legacyBindings expresses each named permission as matrix lookups, so the
// two views cannot drift. CanEditAllData additionally requires team-wide
// visibility: editing "all" data only makes sense for roles that can see
// beyond their own records.
var legacyBindings = map[Permission]func(domain.Role) bool{
	CanManageUsers:    func(r domain.Role) bool { return HasPermission(r, ModuleTeam, ActionManage) },
	CanManageBilling:  func(r domain.Role) bool { return HasPermission(r, ModuleBilling, ActionManage) },
	CanViewAllData:    func(r domain.Role) bool { return HasPermission(r, ModuleTeam, ActionView) },
	CanManageSettings: func(r domain.Role) bool { return HasPermission(r, ModuleSettings, ActionManage) },
	CanExportData:     func(r domain.Role) bool { return HasPermission(r, ModuleDashboard, ActionExport) },
	CanDeleteData:     func(r domain.Role) bool { return HasPermission(r, ModuleContacts, ActionDelete) },
	CanEditAllData: func(r domain.Role) bool {
		return HasPermission(r, ModuleTeam, ActionView) && HasPermission(r, ModuleContacts, ActionEdit)
	},
}

// LegacyPermissions lists every named capability, in the order clients
// historically received them.
var LegacyPermissions = []Permission{
	CanManageUsers,
	CanManageBilling,
	CanViewAllData,
	CanEditAllData,
	CanDeleteData,
	CanManageSettings,
	CanExportData,
}

// Granted reports whether role holds the named permission. Unknown
// permissions are denied.
func Granted(role domain.Role, p Permission) bool {
	bound, ok := legacyBindings[p]
	if !ok {
		return false
	}
	return bound(role)
}
