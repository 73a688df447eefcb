// Package config holds engine-wide tuning constants and the optional
// limits file loaded by embedders.
package config

// Initial sizes for the value stack and call stack of a fresh context.
const (
	InitialValstackSize  = 128
	InitialCallstackSize = 64
)

// Growth increment when the value stack needs to expand.
const ValstackGrowthIncrement = 256

// DefaultValstackLimit bounds the value stack to prevent OOM.
const DefaultValstackLimit = 1024 * 1024 // 1M slots

// DefaultRecLimit is the maximum call stack depth (nested activations)
// unless a call explicitly requests bypass.
const DefaultRecLimit = 1000

// ValstackInternalExtra is the slack reserved on top of the declared
// argument window before dispatching into a callee, so that call setup
// (receiver insertion, bound argument folding, local slots) never has to
// grow the reserve mid-flight.
const ValstackInternalExtra = 64
