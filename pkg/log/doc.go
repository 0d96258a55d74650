// Package log provides named, leveled loggers on top of the standard library
// logger.
//
// Every component obtains its logger once with ForService and every line it
// writes carries the "[name>]" prefix:
//
//	logger := log.ForService("search")
//	logger.Infof("serving %d documents", n)
//	logger.Debugf("query %q took %s", q, elapsed) // only with debug enabled
//
// Debug output is off by default. It can be turned on for every service with
// SetGlobalDebug (the CLI --debug flag) or for a subset with EnableDebugFor
// (the CLI --debug-services flag, see EnableDebugList).
//
// SetOutput redirects all loggers, including the ones already created, which
// is how tests capture log lines.
//
// The package name shadows the standard library log package; alias one of
// them when both are needed.
package log
