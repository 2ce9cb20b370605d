package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivy_chat_messages_total",
			Help: "Chat messages handled, by outcome",
		},
		[]string{"outcome"},
	)

	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aivy_chat_duration_seconds",
			Help:    "Duration of chat pipeline stages in seconds",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivy_intents_classified_total",
			Help: "Classified queries by primary intent",
		},
		[]string{"intent"},
	)

	KnowledgeChunks = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aivy_knowledge_chunks",
			Help:    "Knowledge chunks per query after each selection step",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"step"},
	)

	RetrievalFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aivy_retrieval_fallbacks_total",
			Help: "Retrievals that needed the relaxed similarity threshold",
		},
	)

	TurnsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aivy_turns_recorded_total",
			Help: "Conversation turns persisted",
		},
	)

	TurnRecordFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivy_turn_record_failures_total",
			Help: "Turn recording failures by stage",
		},
		[]string{"stage"},
	)

	SessionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivy_session_cache_total",
			Help: "Session cache lookups by result",
		},
		[]string{"result"},
	)

	LeadsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aivy_leads_captured_total",
			Help: "Lead contact submissions by outcome",
		},
		[]string{"outcome"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aivy_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
