// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes prometheus instrumentation for the session core.
// All recorder methods are nil-safe so instrumentation stays optional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics counts session operation outcomes by operation name.
type SessionMetrics struct {
	startedCount   *prometheus.CounterVec
	succeededCount *prometheus.CounterVec
	failedCount    *prometheus.CounterVec
	retryCount     *prometheus.CounterVec
	staleAborts    *prometheus.CounterVec
}

// NewSessionMetrics creates and registers session metrics.
func NewSessionMetrics(registerer prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		startedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operation_started_count",
				Help: "Number of operations started",
			},
			[]string{"operation"},
		),
		succeededCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operation_succeeded_count",
				Help: "Number of operations that completed successfully",
			},
			[]string{"operation"},
		),
		failedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operation_failed_count",
				Help: "Number of operations that terminally failed",
			},
			[]string{"operation"},
		),
		retryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operation_retry_count",
				Help: "Number of retry attempts across operations",
			},
			[]string{"operation"},
		),
		staleAborts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "operation_stale_abort_count",
				Help: "Number of operations aborted by an ambient context change",
			},
			[]string{"operation"},
		),
	}
	registerer.MustRegister(
		m.startedCount,
		m.succeededCount,
		m.failedCount,
		m.retryCount,
		m.staleAborts,
	)
	return m
}

func (m *SessionMetrics) Started(op string) {
	if m != nil {
		m.startedCount.WithLabelValues(op).Inc()
	}
}

func (m *SessionMetrics) Succeeded(op string) {
	if m != nil {
		m.succeededCount.WithLabelValues(op).Inc()
	}
}

func (m *SessionMetrics) Failed(op string) {
	if m != nil {
		m.failedCount.WithLabelValues(op).Inc()
	}
}

func (m *SessionMetrics) Retried(op string) {
	if m != nil {
		m.retryCount.WithLabelValues(op).Inc()
	}
}

func (m *SessionMetrics) StaleAbort(op string) {
	if m != nil {
		m.staleAborts.WithLabelValues(op).Inc()
	}
}

// CredentialMetrics counts credential manager cache behavior and prompts.
type CredentialMetrics struct {
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	signPrompts prometheus.Counter
}

// NewCredentialMetrics creates and registers credential metrics.
func NewCredentialMetrics(registerer prometheus.Registerer) *CredentialMetrics {
	m := &CredentialMetrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credential_cache_hit_count",
			Help: "Number of credential requests served from cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credential_cache_miss_count",
			Help: "Number of credential requests not served from cache",
		}),
		signPrompts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "credential_sign_prompt_count",
			Help: "Number of times the signer was prompted for a credential",
		}),
	}
	registerer.MustRegister(m.cacheHits, m.cacheMisses, m.signPrompts)
	return m
}

func (m *CredentialMetrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *CredentialMetrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *CredentialMetrics) SignPrompt() {
	if m != nil {
		m.signPrompts.Inc()
	}
}
