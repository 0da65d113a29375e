// Package worker provides a queue-driven worker for the cascata engine.
//
// A Worker pulls dispatch and update tasks from a queue and executes them
// against an Engine, decoupling the code that requests a run from the code
// that drives it. Applications typically run one or more workers as
// background goroutines; see the root package's Runner for a pre-wired
// engine + queue + worker bundle.
package worker
