// Package msg defines the message types used by the TUI's Bubbletea event
// loop, and small factories for the commands that produce them.
//
// Messages that carry a controller result are defined here too, so the
// handlers in the tui package and the tests that drive them agree on one set
// of types.
package msg
