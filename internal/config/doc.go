// Package config manages webmirror configuration.
//
// Configuration comes from two sources, merged in this order:
//  1. The optional .webmirror YAML file (per-site sections)
//  2. CLI flags, which always win
//
// Design decision: Config is a single flat struct populated once after CLI
// parsing and passed through the application via dependency injection rather
// than global state. The number of options is manageable, and nesting would
// add complexity without significant benefit.
package config
