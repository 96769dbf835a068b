package worker

import (
	"context"
	"time"

	"prospectflow/editor"

	"github.com/sirupsen/logrus"
)

// SessionReaper closes editor sessions that have been idle too long.
type SessionReaper struct {
	Registry *editor.Registry
	Idle     time.Duration
	Interval time.Duration
	Logger   *logrus.Entry
}

func NewSessionReaper(registry *editor.Registry, idle time.Duration, logger *logrus.Entry) *SessionReaper {
	interval := idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &SessionReaper{Registry: registry, Idle: idle, Interval: interval, Logger: logger}
}

func (sr *SessionReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(sr.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sr.Logger.Info("Session reaper shutting down...")
			return
		case <-ticker.C:
			if closed := sr.Registry.Reap(sr.Idle); len(closed) > 0 {
				sr.Logger.WithField("sessions", len(closed)).Info("Closed idle editor sessions")
			}
		}
	}
}
