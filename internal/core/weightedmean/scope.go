package weightedmean

import (
	"errors"
	"fmt"
)

// ErrScopeReleased is returned when a scope is released twice or used after release.
var ErrScopeReleased = errors.New("scope already released")

// ScopeObserver receives scope lifecycle notifications.
// Used for metrics and for verifying that every group scope is released exactly once.
type ScopeObserver interface {
	ScopeCreated(name string)
	ScopeReleased(name string)
}

// Scope owns the state of one aggregation group for the group's whole lifetime.
// Children are released together with their parent, so tearing down a group is a single call.
// A Scope is not safe for concurrent use; the host dispatches one group from one goroutine.
type Scope struct {
	name     string
	parent   *Scope
	children []*Scope
	observer ScopeObserver
	released bool
}

// NewScope creates a root scope. observer may be nil.
func NewScope(name string, observer ScopeObserver) *Scope {
	s := &Scope{name: name, observer: observer}
	if observer != nil {
		observer.ScopeCreated(name)
	}
	return s
}

// NewChild creates a scope whose lifetime is bounded by s.
func (s *Scope) NewChild(name string) (*Scope, error) {
	if s.released {
		return nil, fmt.Errorf("create child %q under %q: %w", name, s.name, ErrScopeReleased)
	}
	child := NewScope(name, s.observer)
	child.parent = s
	s.children = append(s.children, child)
	return child, nil
}

// Name returns the scope name given at creation.
func (s *Scope) Name() string {
	return s.name
}

// Released reports whether Release has been called on s or one of its ancestors.
func (s *Scope) Released() bool {
	return s.released
}

// Release frees s and every child that is still live.
// Releasing an already-released scope returns ErrScopeReleased.
func (s *Scope) Release() error {
	if s.released {
		return fmt.Errorf("release %q: %w", s.name, ErrScopeReleased)
	}
	children := s.children
	s.children = nil
	for _, child := range children {
		if !child.released {
			_ = child.Release()
		}
	}
	s.released = true
	if s.parent != nil {
		s.parent.forget(s)
	}
	if s.observer != nil {
		s.observer.ScopeReleased(s.name)
	}
	return nil
}

func (s *Scope) forget(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// AggContext is the per-group dispatch context the host engine hands to Transition.
// It carries the long-lived group scope and tracks which scope is currently active.
type AggContext struct {
	groupScope *Scope
	current    *Scope
}

// NewAggContext wraps the scope that will outlive every transition call for one group.
func NewAggContext(groupScope *Scope) *AggContext {
	return &AggContext{groupScope: groupScope, current: groupScope}
}

// GroupScope returns the long-lived scope for the group.
func (c *AggContext) GroupScope() *Scope {
	return c.groupScope
}

// Current returns the active scope.
func (c *AggContext) Current() *Scope {
	return c.current
}

// switchTo activates s and returns the previously active scope.
func (c *AggContext) switchTo(s *Scope) *Scope {
	prev := c.current
	c.current = s
	return prev
}

// checkCallContext returns the group scope, or ErrNotAggregateContext when the
// caller did not come through an aggregation dispatch.
func checkCallContext(c *AggContext) (*Scope, error) {
	if c == nil || c.groupScope == nil {
		return nil, ErrNotAggregateContext
	}
	if c.groupScope.Released() {
		return nil, fmt.Errorf("%w: group scope %q already released", ErrNotAggregateContext, c.groupScope.name)
	}
	return c.groupScope, nil
}
