// Package metrics exposes the Prometheus collectors shared across the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests counts inbound webhook deliveries, labeled by provider and disposition.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_webhook_requests_total",
		Help: "The total number of received webhook requests",
	}, []string{"provider", "status"}) // status: accepted, duplicate, unauthorized, invalid, error

	// DedupHits counts events dropped because their idempotency key was already recorded.
	DedupHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dedup_hits_total",
		Help: "The total number of duplicate webhook events suppressed",
	}, []string{"provider"})

	// TasksProcessed counts queue messages by their final disposition.
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_tasks_processed_total",
		Help: "The total number of queued review tasks processed",
	}, []string{"provider", "status"}) // status: completed, failed, error_calling_llm, retried, dead_lettered

	// CommentPostFailures counts review comments that could not be posted back.
	CommentPostFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_comment_post_failures_total",
		Help: "Total number of failed comment posts to the provider",
	}, []string{"provider"})

	// ReviewDuration measures time from picking a task off the stream to its persisted outcome.
	ReviewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_review_duration_seconds",
		Help:    "Time taken to process one review task end to end",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})
)
