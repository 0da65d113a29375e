// Package api defines the public types of the cascata process engine:
// actions and their lifecycle hooks, run and execution contexts, the
// Strategy interface with the built-in dependency and transition strategies,
// run handles, errors, observers, and run history events.
//
// Most applications import the root cascata package, which re-exports
// everything here together with the engine constructors and builders.
package api
