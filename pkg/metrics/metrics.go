package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "reportserver"

	metricLabelStatus = "status"
)

const (
	StatusFound    = "found"
	StatusMissing  = "missing"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusSuccess  = "success"
)

var (
	// ReportRequestCounter counts report requests by outcome
	ReportRequestCounter = newCounterVec(
		"report_request_count",
		"Count of report requests by outcome",
		metricLabelStatus,
	)
	// ReportRequestDuration observe the duration of report requests
	ReportRequestDuration = newSummaryVec(
		"report_request_duration_seconds",
		"Seconds to resolve, read and write the report",
		metricLabelStatus,
	)
	// ReportBytesCounter counts the report bytes written to clients
	ReportBytesCounter = newCounterVec(
		"report_bytes_total",
		"Number of report bytes written",
	)
	// ForwardRequestCounter counts forwarded requests by outcome
	ForwardRequestCounter = newCounterVec(
		"forward_request_count",
		"Count of forwarded requests by outcome",
		metricLabelStatus,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
