// Package engine implements the call-invocation core of the corvid
// scripting runtime: a tagged value model, per-context value and call
// stacks, and a stack-based calling convention with unprotected
// (fault-propagating) and protected (fault-isolating) call variants.
//
// A Context is single-threaded: it owns exactly one value stack and one
// call stack, and all operations on it run synchronously to completion.
// Native callees may re-enter the same context; re-entrancy is modeled
// as nested activations over disjoint stack windows. Independent
// contexts are fully independent; cross-context coordination is the
// embedder's responsibility.
package engine

import (
	"github.com/google/uuid"

	"github.com/corvid-lang/corvid/internal/config"
)

const valstackGrowthIncrement = config.ValstackGrowthIncrement

// Context is one logical execution context.
type Context struct {
	stack  []Value
	bottom int
	top    int
	end    int // guaranteed reserve limit, bottom <= top <= end

	callstack []Activation

	limits config.Limits
	id     uuid.UUID
}

// New creates a context with the default limits.
func New() *Context {
	l, _ := config.DefaultLimits().Normalize()
	return NewWithLimits(l)
}

// NewWithLimits creates a context with explicit resource limits, e.g.
// loaded from a corvid.yaml via config.LoadLimits.
func NewWithLimits(l config.Limits) *Context {
	return &Context{
		stack:     make([]Value, l.ValstackInit),
		end:       l.ValstackInit,
		callstack: make([]Activation, 0, config.InitialCallstackSize),
		limits:    l,
		id:        uuid.New(),
	}
}

// ID returns the context's diagnostic identity.
func (c *Context) ID() string {
	return c.id.String()
}
