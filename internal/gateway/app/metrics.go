package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "jobs_processed_total",
			Help:      "Total number of queue jobs processed by the worker pool.",
		},
		[]string{"platform", "outcome"}, // outcome: "completed", "retried", "dead_lettered", "dropped"
	)

	aiInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "ai_invocation_duration_seconds",
			Help:      "Wall-clock duration of AI provider invocations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "status"},
	)

	repliesSentCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "replies_sent_total",
			Help:      "Total number of outbound replies accepted by a platform.",
		},
		[]string{"platform"},
	)

	webhooksEnqueuedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "webhooks_enqueued_total",
			Help:      "Total number of webhook payloads accepted onto the job queue.",
		},
		[]string{"platform"},
	)
)
