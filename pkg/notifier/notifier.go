// Package notifier sends desktop notifications about watch-mode rebuilds
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/webvy/webvy/pkg/logger"
)

// SendFunc delivers one notification.
type SendFunc func(title, message string) error

// BuildNotifier reports rebuild outcomes.
type BuildNotifier struct {
	enabled bool
	sound   bool
	send    SendFunc
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps on failures.
	Sound bool
}

// New creates a notifier that delivers through beeep.
func New(config Config, log logger.Logger) *BuildNotifier {
	return NewWithSender(config, log, func(title, message string) error {
		return beeep.Notify(title, message, "")
	})
}

// NewWithSender creates a notifier that delivers through send.
func NewWithSender(config Config, log logger.Logger, send SendFunc) *BuildNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &BuildNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		send:    send,
		logger:  log,
	}
}

// Enabled reports whether notifications are delivered.
func (n *BuildNotifier) Enabled() bool {
	return n.enabled
}

// NotifyBuildStart notifies that a rebuild has started
func (n *BuildNotifier) NotifyBuildStart(site string, changed int) {
	if !n.enabled {
		return
	}
	n.deliver("🕸 webvy", fmt.Sprintf("Rebuilding %s (%d changed)", site, changed))
}

// NotifyBuildSuccess notifies that a rebuild succeeded
func (n *BuildNotifier) NotifyBuildSuccess(site string, pages int, duration time.Duration) {
	if !n.enabled {
		return
	}
	n.deliver("✅ Build Succeeded",
		fmt.Sprintf("%s: %d pages in %s", site, pages, formatDuration(duration)))
}

// NotifyBuildFailure notifies that a rebuild failed
func (n *BuildNotifier) NotifyBuildFailure(site string, err error) {
	if !n.enabled {
		return
	}
	n.deliver("❌ Build Failed", fmt.Sprintf("%s: %v", site, err))

	if n.sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithError(err))
		}
	}
}

func (n *BuildNotifier) deliver(title, message string) {
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
