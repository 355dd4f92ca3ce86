// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (text or JSON) when stdout is a terminal, pipe or
// file, and to the systemd journal when journald is running. Both are used
// when both are available.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"device": "debug",
//			"api":    "warn",
//		},
//	})
//
// Then get a logger per module:
//
//	logger := logging.GetLogger("sequencer")
//	logger.Info("Validation succeeded", "entries", 24)
//
// Module levels can be changed while running with SetModuleLevel.
//
// Journal entries carry SYSLOG_IDENTIFIER=lcrnode and one upper-cased field
// per attribute:
//
//	journalctl -t lcrnode MODULE=device
//	journalctl -t lcrnode -p err -f
package logging
