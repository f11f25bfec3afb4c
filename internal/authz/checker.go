// Package authz decides whether a user may post to a conversation.
//
// The check is fail-closed: anything other than an existing, active
// permission record denies, including errors from the permission store.
package authz

import (
	"context"
	"errors"

	"chat-conversations/internal/domain"
)

// Outcome names the result of a permission lookup.
type Outcome int

const (
	// OutcomeUnknown is the zero value and denies.
	OutcomeUnknown Outcome = iota
	Granted
	NotFound
	Inactive
	LookupFailed
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case NotFound:
		return "not_found"
	case Inactive:
		return "inactive"
	case LookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// Decision is the result of Check. Err is set only for LookupFailed.
type Decision struct {
	Outcome Outcome
	Err     error
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == Granted
}

type PermissionReader interface {
	GetPermission(ctx context.Context, userID, conversationID string) (domain.Permission, bool, error)
}

type Checker struct {
	perms PermissionReader
}

func NewChecker(perms PermissionReader) (*Checker, error) {
	if perms == nil {
		return nil, errors.New("authz: permission reader must not be nil")
	}
	return &Checker{perms: perms}, nil
}

// Check performs a fresh lookup of the (userID, conversationID) record.
func (c *Checker) Check(ctx context.Context, userID, conversationID string) Decision {
	perm, found, err := c.perms.GetPermission(ctx, userID, conversationID)
	switch {
	case err != nil:
		return Decision{Outcome: LookupFailed, Err: err}
	case !found:
		return Decision{Outcome: NotFound}
	case !perm.Active:
		return Decision{Outcome: Inactive}
	default:
		return Decision{Outcome: Granted}
	}
}
