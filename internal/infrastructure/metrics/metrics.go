package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks lifecycle commands, attachment storage and notification dispatch.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Commands              *prometheus.CounterVec
	CommandDuration       *prometheus.HistogramVec
	VersionConflicts      prometheus.Counter
	LockRefusals          prometheus.Counter
	AttachmentBytes       prometheus.Counter
	CompensatingDeletes   *prometheus.CounterVec
	NotificationsSent     *prometheus.CounterVec
	NotificationsDropped  prometheus.Counter
	NotificationsFailed   *prometheus.CounterVec
	NotificationQueueSize prometheus.Gauge
}

// New registers every metric with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_commands_total",
			Help: "Lifecycle commands by kind and outcome code",
		}, []string{"command", "outcome"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complaints_command_duration_seconds",
			Help:    "Duration of lifecycle commands",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"command"}),
		VersionConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "complaints_version_conflicts_total",
			Help: "Commands refused because the expected version was stale",
		}),
		LockRefusals: f.NewCounter(prometheus.CounterOpts{
			Name: "complaints_lock_refusals_total",
			Help: "Commands refused because another employee holds the claim lock",
		}),
		AttachmentBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "complaints_attachment_bytes_total",
			Help: "Bytes of attachment content committed",
		}),
		CompensatingDeletes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_compensating_deletes_total",
			Help: "Attachment files removed after a failed commit, by result",
		}, []string{"result"}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_notifications_delivered_total",
			Help: "Notification facts delivered, by sink",
		}, []string{"sink"}),
		NotificationsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "complaints_notifications_dropped_total",
			Help: "Notification facts dropped because the dispatch queue was full",
		}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_notifications_failed_total",
			Help: "Notification deliveries that failed, by sink",
		}, []string{"sink"}),
		NotificationQueueSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "complaints_notification_queue_length",
			Help: "Facts waiting for a dispatch worker",
		}),
	}
}

// ObserveCommand records a command outcome. Call with time.Now() taken at the start.
func (m *Metrics) ObserveCommand(command, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncVersionConflict() {
	if m == nil {
		return
	}
	m.VersionConflicts.Inc()
}

func (m *Metrics) IncLockRefusal() {
	if m == nil {
		return
	}
	m.LockRefusals.Inc()
}

func (m *Metrics) AddAttachmentBytes(n int64) {
	if m == nil {
		return
	}
	m.AttachmentBytes.Add(float64(n))
}

func (m *Metrics) IncCompensatingDelete(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.CompensatingDeletes.WithLabelValues(result).Inc()
}

func (m *Metrics) IncDelivered(sink string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncDeliveryFailed(sink string) {
	if m == nil {
		return
	}
	m.NotificationsFailed.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.NotificationsDropped.Inc()
}

func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.NotificationQueueSize.Set(float64(n))
}
