// Package dispatch implements the head's task-assignment service: runTask,
// fetchTask, sendSignal, getTask, getTasks, getEventTypes and alive, all
// serialized through one mutex per the single-writer-per-request model.
package dispatch

import "github.com/pkg/errors"

// Role is one of the three grant levels a caller can carry.
type Role string

const (
	RoleReadOnly Role = "read-only"
	RoleExecute  Role = "execute"
	RoleWorker   Role = "worker"
)

// RoleGrant is one (namespace, role) pair produced by the auth layer. A
// namespace of "*" or "" matches any namespace.
type RoleGrant struct {
	Namespace string
	Role      Role
}

// ErrForbidden is returned by requireRole when no grant covers the call.
var ErrForbidden = errors.New("forbidden")

func grantMatches(g RoleGrant, ns string, allowed ...Role) bool {
	if g.Namespace != "" && g.Namespace != "*" && g.Namespace != ns {
		return false
	}
	for _, r := range allowed {
		if g.Role == r {
			return true
		}
	}
	return false
}

// requireRole checks that at least one grant in grants covers ns with one of
// the allowed roles.
func requireRole(grants []RoleGrant, ns string, allowed ...Role) error {
	for _, g := range grants {
		if grantMatches(g, ns, allowed...) {
			return nil
		}
	}
	return errors.Wrapf(ErrForbidden, "namespace %q requires one of %v", ns, allowed)
}
