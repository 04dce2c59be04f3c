package app

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dkeye/Standup/internal/domain"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "standup",
		Subsystem: "session",
		Name:      "active",
		Help:      "The number of live meeting sessions",
	})

	sessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "session",
		Name:      "reaped_total",
		Help:      "The total number of idle sessions closed by the reaper",
	})

	membersAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "roster",
		Name:      "members_added_total",
		Help:      "The total number of members added to rosters",
	})

	capturesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "capture",
		Name:      "started_total",
		Help:      "The total number of recordings started",
	})

	capturesAborted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "capture",
		Name:      "aborted_total",
		Help:      "The total number of recordings dropped without an artifact",
	})

	captureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "capture",
		Name:      "failures_total",
		Help:      "The total number of failed device acquisitions",
	}, []string{"reason"})

	turnsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "turn",
		Name:      "ended_total",
		Help:      "The total number of speaker turns by outcome",
	}, []string{"outcome"})

	recordedSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "standup",
		Subsystem: "capture",
		Name:      "recorded_seconds_total",
		Help:      "The total length of stored recordings",
	})
)

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, domain.ErrRecordingInProgress):
		return "in_progress"
	case errors.Is(err, domain.ErrStorageFull):
		return "storage_full"
	default:
		return "unavailable"
	}
}
