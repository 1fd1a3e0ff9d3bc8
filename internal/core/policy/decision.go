package policy

import (
	"github.com/acmecrm/crm-identity/internal/core/domain"
)

// DenyReason classifies why a decision came back negative. Reasons exist for
// diagnostics and metrics only; every deny is terminal regardless of reason.
type DenyReason string

const (
	DenyNotAuthenticated DenyReason = "not_authenticated"
	DenyNoLocalRecord    DenyReason = "no_local_record"
	DenyRecordInactive   DenyReason = "record_inactive"
	DenyRoleInsufficient DenyReason = "role_insufficient"
)

// Decision is the verdict of the engine.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Principal is the already-resolved actor a decision is made about. Callers
// resolve it through the identity sync read path before deciding; the engine
// itself performs no I/O.
type Principal struct {
	// Authenticated is true when the request carried a valid provider
	// session, regardless of whether a local record exists yet.
	Authenticated bool
	// User is the local record, nil while mid-sync or unknown.
	User *domain.User
}

type requirementKind int

const (
	reqAuthenticated requirementKind = iota
	reqSession
	reqAnyRole
	reqNamed
	reqModuleAction
)

// Requirement is one condition a principal must satisfy: membership in a
// role set, a named permission, or a (module, action) pair. The zero value
// requires only an authenticated, active principal.
type Requirement struct {
	kind   requirementKind
	roles  []domain.Role
	perm   Permission
	module Module
	action Action
}

// Authenticated requires any authenticated, active principal.
func Authenticated() Requirement {
	return Requirement{kind: reqAuthenticated}
}

// Session requires only a valid provider session. It admits principals whose
// local record has not materialized yet, which is what the sync entry and
// the composite views need; everything else should use a stricter
// requirement.
func Session() Requirement {
	return Requirement{kind: reqSession}
}

// AnyRole requires the principal's role to be one of the given roles.
func AnyRole(roles ...domain.Role) Requirement {
	return Requirement{kind: reqAnyRole, roles: roles}
}

// Named requires the principal's role to hold a named permission.
func Named(p Permission) Requirement {
	return Requirement{kind: reqNamed, perm: p}
}

// OnModule requires the principal's role to permit action on module.
func OnModule(m Module, a Action) Requirement {
	return Requirement{kind: reqModuleAction, module: m, action: a}
}

// Decide answers whether the principal satisfies the requirement. The check
// order is fixed: authentication, record presence, record activity, then the
// role test. Any unresolved state denies.
func Decide(p Principal, req Requirement) Decision {
	if !p.Authenticated {
		return deny(DenyNotAuthenticated)
	}
	if req.kind == reqSession {
		return allow()
	}
	if p.User == nil {
		return deny(DenyNoLocalRecord)
	}
	if !p.User.IsActive {
		return deny(DenyRecordInactive)
	}

	switch req.kind {
	case reqAuthenticated:
		return allow()
	case reqAnyRole:
		for _, r := range req.roles {
			if p.User.Role == r {
				return allow()
			}
		}
	case reqNamed:
		if Granted(p.User.Role, req.perm) {
			return allow()
		}
	case reqModuleAction:
		if HasPermission(p.User.Role, req.module, req.action) {
			return allow()
		}
	}
	return deny(DenyRoleInsufficient)
}
