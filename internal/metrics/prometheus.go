package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage labels.
const (
	StageDecode     = "decode"
	StageTranscode  = "transcode"
	StageRecognize  = "recognize"
	StageDialogue   = "dialogue"
	StageSynthesize = "synthesize"
)

var (
	// TurnsTotal counts audio turns accepted into the pipeline.
	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiotutor_pipeline_turns_total",
		Help: "Total number of audio turns processed",
	})

	// TurnsCompleted counts turns that delivered all three artifacts.
	TurnsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiotutor_pipeline_turns_completed_total",
		Help: "Total number of audio turns that completed all stages",
	})

	// StageErrors counts failures per pipeline stage.
	StageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiotutor_pipeline_stage_errors_total",
		Help: "Total number of pipeline stage failures",
	}, []string{"stage"})

	// StageDuration tracks wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiotutor_pipeline_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// ActiveSessions tracks open websocket sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiotutor_active_sessions",
		Help: "Number of connected websocket sessions",
	})
)

// ObserveStage records the elapsed time of one stage invocation.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
