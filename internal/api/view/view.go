// Package view renders role-dependent response sections. It is the
// presentation-side counterpart of the request gate: instead of rejecting
// the request, it decides per section whether to include the content, a
// fallback, a pending placeholder, or nothing at all.
package view

import (
	"github.com/acmecrm/crm-identity/internal/core/policy"
)

// Section declares one gated fragment of a composite response.
type Section struct {
	Name    string
	Require policy.Requirement

	// Content produces the section payload when the requirement holds.
	Content func() any

	// Fallback, when set, is rendered instead of omitting the section
	// on a denial.
	Fallback func() any

	// ShowPending renders a loading placeholder while the principal is
	// authenticated but its local record has not materialized yet.
	ShowPending bool
}

// Pending is the placeholder rendered for sections that opt into the
// mid-sync state.
type Pending struct {
	State string `json:"state"`
}

// Render evaluates every section against the principal and returns the
// visible ones keyed by name. Sections the principal may not see and that
// declare no fallback are absent from the result, not present-but-empty.
func Render(p policy.Principal, sections ...Section) map[string]any {
	out := make(map[string]any, len(sections))
	resolving := p.Authenticated && p.User == nil

	for _, s := range sections {
		if resolving && s.ShowPending {
			out[s.Name] = Pending{State: "loading"}
			continue
		}

		d := policy.Decide(p, s.Require)
		switch {
		case d.Allowed:
			out[s.Name] = s.Content()
		case s.Fallback != nil:
			out[s.Name] = s.Fallback()
		}
	}

	return out
}
