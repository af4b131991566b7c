// SPDX-FileCopyrightText: Copyright (C) 2026 Nym contributors.
// SPDX-License-Identifier: AGPL-3.0-only

// Package instrument collects the mix server prometheus metrics.
package instrument

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	packetsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nym_mixnode_packets_received_total",
		Help: "Number of Sphinx packets received",
	})
	packetsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nym_mixnode_packets_dropped_total",
		Help: "Number of packets dropped",
	})
	packetsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nym_mixnode_packets_replayed_total",
		Help: "Number of replayed packets detected and dropped",
	})
	packetsForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nym_mixnode_packets_forwarded_total",
		Help: "Number of packets forwarded to the next hop",
	})
	packetsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nym_mixnode_packets_stored_total",
		Help: "Number of terminal packets stored for retrieval",
	})
	mixQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nym_mixnode_mix_queue_size",
		Help: "Number of packets waiting in the mix scheduler",
	})
	ingressDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nym_mixnode_ingress_dropped_total",
		Help: "Number of packets dropped at admission due to a full ingress queue",
	})
)

// PacketReceived increments the received packets counter.
func PacketReceived() {
	packetsReceived.Inc()
}

// PacketDropped increments the dropped packets counter.
func PacketDropped() {
	packetsDropped.Inc()
}

// PacketReplayed increments the replayed packets counter.
func PacketReplayed() {
	packetsReplayed.Inc()
}

// PacketForwarded increments the forwarded packets counter.
func PacketForwarded() {
	packetsForwarded.Inc()
}

// PacketStored increments the stored packets counter.
func PacketStored() {
	packetsStored.Inc()
}

// IngressDropped increments the admission drop counter.
func IngressDropped() {
	ingressDropped.Inc()
}

// SetMixQueueSize sets the scheduler queue depth gauge.
func SetMixQueueSize(size uint64) {
	mixQueueSize.Set(float64(size))
}

// StartMetricsEndpoint exposes the /metrics HTTP handler on addr.
func StartMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		// Ignore the error, metrics are best effort.
		_ = http.ListenAndServe(addr, mux)
	}()
}
