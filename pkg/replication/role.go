package replication

import (
	"fmt"
	"sync/atomic"
)

// Role is the replica's position in its partition's replica set. Only the
// primary accepts writes.
type Role int32

const (
	Primary Role = iota
	Secondary
	Unavailable
)

func (r Role) String() string {
	switch r {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("role(%d)", int32(r))
	}
}

// ParseRole maps a config string to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	case "unavailable":
		return Unavailable, nil
	default:
		return Unavailable, fmt.Errorf("unknown role %q", s)
	}
}

// Source reports the replica's current role. The replicated-log platform
// supplies the real implementation; the store only ever asks "am I primary
// right now".
type Source interface {
	Role() Role
}

// StaticSource is a manually driven Source. The bootstrap wires it from
// config; tests and failover drills flip it at runtime.
type StaticSource struct {
	role atomic.Int32
}

func NewStaticSource(r Role) *StaticSource {
	s := &StaticSource{}
	s.role.Store(int32(r))
	return s
}

func (s *StaticSource) Role() Role { return Role(s.role.Load()) }

func (s *StaticSource) Set(r Role) { s.role.Store(int32(r)) }

var _ Source = (*StaticSource)(nil)
