package workflow

import (
	"fmt"

	"github.com/example/agriroute/internal/models"
)

// Entity names which lifecycle a transition belongs to.
type Entity string

const (
	EntityFreight        Entity = "freight"
	EntityServiceRequest Entity = "service_request"
)

// TransitionError reports an illegal lifecycle transition. It carries the
// attempted from/to/role so audit logs capture exactly what was refused.
type TransitionError struct {
	Entity Entity
	From   string
	To     string
	Role   models.Role
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workflow: illegal %s transition %s -> %s by role %q", e.Entity, e.From, e.To, e.Role)
}
