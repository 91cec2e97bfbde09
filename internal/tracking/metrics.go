package tracking

import "github.com/prometheus/client_golang/prometheus"

// Skip reasons reported on fieldtrack_tracking_skipped_total.
const (
	SkipExcludedKind   = "excluded_kind"
	SkipMaintenance    = "maintenance_phase"
	SkipNoConfig       = "no_configuration"
	SkipNoActivityFeed = "no_activity_feed"
	SkipNoFields       = "no_watched_fields"
	SkipCreateDisabled = "create_not_tracked"
	SkipUnknownKind    = "unknown_kind"
	SkipHiddenValues   = "values_hidden"
)

// Metrics holds the tracking pipeline's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	NotesPosted      prometheus.Counter
	NotePostFailures prometheus.Counter
	ChangeLines      prometheus.Counter
	Skipped          *prometheus.CounterVec
	ConfigLookups    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them when registerer is set.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_notes_posted_total",
			Help: "Audit notes posted to an activity feed",
		}),
		NotePostFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_note_post_failures_total",
			Help: "Audit notes dropped because posting failed",
		}),
		ChangeLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldtrack_change_lines_total",
			Help: "Field change lines produced by the diff builder",
		}),
		Skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldtrack_tracking_skipped_total",
				Help: "Writes passed through without tracking, by guard",
			},
			[]string{"reason"},
		),
		ConfigLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldtrack_config_lookups_total",
				Help: "Tracking configuration resolutions by outcome",
			},
			[]string{"result"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.NotesPosted,
			m.NotePostFailures,
			m.ChangeLines,
			m.Skipped,
			m.ConfigLookups,
		)
	}
	return m
}

func (m *Metrics) skipped(reason string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.ConfigLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) posted() {
	if m == nil {
		return
	}
	m.NotesPosted.Inc()
}

func (m *Metrics) postFailed() {
	if m == nil {
		return
	}
	m.NotePostFailures.Inc()
}

func (m *Metrics) lines(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ChangeLines.Add(float64(n))
}
