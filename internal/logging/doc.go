// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (text or JSON), to the systemd journal when journald
// is reachable, and to an in-memory ring buffer that the status server
// exposes under /api/logs.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"camera":    "debug",
//			"telemetry": "warn",
//		},
//	})
//
// Then obtain module loggers:
//
//	logger := logging.GetLogger("camera").With("session_id", id)
//	logger.Info("Device opened", "index", 0)
//
// Levels are slog.LevelVars, so Reconfigure and SetModuleLevel take effect
// on loggers that were handed out earlier. The config watcher calls
// Reconfigure whenever the [logging] section of the config file changes.
//
// With journald:
//
//	journalctl -t gxcam -f
//	journalctl -t gxcam MODULE=camera
//
// TOML:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	camera = "debug"
package logging
