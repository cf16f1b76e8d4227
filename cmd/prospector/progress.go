package main

import "log/slog"

// logProgress reports pipeline progress through the logger. Percentages are
// logged at debug level, once per tenth.
type logProgress struct {
	logger *slog.Logger
	last   int
}

func (p *logProgress) Status(msg string) { p.logger.Info(msg) }

func (p *logProgress) Warn(msg string) { p.logger.Warn(msg) }

func (p *logProgress) Advance(percent int) {
	if percent/10 <= p.last/10 {
		return
	}
	p.last = percent
	p.logger.Debug("progress", "percent", percent)
}
