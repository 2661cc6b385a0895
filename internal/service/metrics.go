package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelinesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storytopia_pipelines_started_total",
			Help: "Total number of story generation pipelines started.",
		},
	)
	pipelinesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storytopia_pipelines_completed_total",
			Help: "Total number of story generation pipelines completed, partitioned by outcome.",
		},
		[]string{"status"},
	)
	generationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storytopia_generation_retries_total",
			Help: "Total number of structured-content self-heal retries, partitioned by reason.",
		},
		[]string{"reason"},
	)
	imageRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storytopia_image_retries_total",
			Help: "Total number of per-scene image generation retries.",
		},
	)
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storytopia_pipeline_stage_duration_seconds",
			Help:    "Histogram of pipeline stage durations.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)
)

// MetricsIncrementPipelineStarted counts a pipeline entering the generating state.
func MetricsIncrementPipelineStarted() {
	pipelinesStarted.Inc()
}

// MetricsIncrementPipelineCompleted counts a finished pipeline by outcome
// ("complete" or "error", matching the terminal story statuses).
func MetricsIncrementPipelineCompleted(status string) {
	pipelinesCompleted.WithLabelValues(status).Inc()
}

// MetricsIncrementGenerationRetried counts a content self-heal retry.
func MetricsIncrementGenerationRetried(reason string) {
	generationRetries.WithLabelValues(reason).Inc()
}

// MetricsIncrementImageRetried counts a per-scene image retry.
func MetricsIncrementImageRetried() {
	imageRetries.Inc()
}

// MetricsRecordStageDuration records how long a pipeline stage took. The
// orchestrator is the only caller; stages are labeled "generate", "render"
// and "synthesize".
func MetricsRecordStageDuration(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
