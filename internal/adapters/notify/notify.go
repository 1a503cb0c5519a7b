// Package notify reports task failures to the developer.
package notify

import (
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Notifier = (*LogNotifier)(nil)

// LogNotifier writes failure notifications through the logger.
type LogNotifier struct {
	logger ports.Logger
}

// New creates a LogNotifier.
func New(logger ports.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs err under title. Nil errors are ignored.
func (n *LogNotifier) Notify(title string, err error) {
	if err == nil {
		return
	}
	n.logger.Error(zerr.Wrap(err, title))
}
