package resource

import "github.com/emeraldcitybeacon/conduit/internal/domain"

// PolicyReviewRequired is the per-field error reason returned when a
// volunteer touches a field that must go through a change request.
const PolicyReviewRequired = "review-required"

// FieldPolicy is the static table deciding which composite paths each
// role may write directly. Editors and admins may write any editable
// field; volunteers only the auto-publish list.
type FieldPolicy struct {
	AutoPublish    map[string]bool
	ReviewRequired map[string]bool
}

// DefaultFieldPolicy returns the standard policy: contact details
// auto-publish, identity and descriptive text require review.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{
		AutoPublish: map[string]bool{
			"service.url":   true,
			"service.email": true,
			"service.phone": true,
			"service.hours": true,
		},
		ReviewRequired: map[string]bool{
			"service.name":        true,
			"service.description": true,
			"service.status":      true,
		},
	}
}

// Known reports whether the policy covers a path at all.
func (p FieldPolicy) Known(path string) bool {
	return p.AutoPublish[path] || p.ReviewRequired[path]
}

// Allows reports whether a role may write the path directly.
func (p FieldPolicy) Allows(role domain.Role, path string) bool {
	if !p.Known(path) {
		return false
	}
	if role.CanReview() {
		return true
	}
	return p.AutoPublish[path]
}
