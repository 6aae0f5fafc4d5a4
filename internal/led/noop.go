package led

import "log/slog"

// noop is used when no LED is available.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(p Pattern) error {
	n.logger.Debug("LED control not available (no-op)", "pattern", p.String())
	return nil
}

func (n *noop) Close() error { return nil }
