package report

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel  = "error_type"
	endpointLabel = "report_endpoint"
)

var (
	reportSend = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smoke_test_report_send",
		Help: "The number of smoke test results sent.",
	}, []string{
		endpointLabel,
	})

	reportSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smoke_test_report_send_errors",
		Help: "The errors that occured while sending a smoke test result.",
	}, []string{
		endpointLabel,
		errTypeLabel,
	})

	reportSendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "smoke_test_report_send_latency",
		Help: "The time to send a smoke test result.",
	}, []string{
		endpointLabel,
	})

	resultValidationError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smoke_test_result_validation_errors",
		Help: "Invalid smoke test result counter.",
	}, []string{
		errTypeLabel,
	})
)

func instrumentReportSend(endpoint string, send func() error) error {
	start := time.Now()
	err := send()

	reportSendLatency.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Observe(time.Since(start).Seconds())

	if err != nil {
		reportSendError.
			With(prometheus.Labels{
				endpointLabel: endpoint,
				errTypeLabel:  errors.Type(err),
			}).
			Inc()
		return err
	}

	reportSend.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Inc()
	return nil
}

func instrumentResultValidation(validate func() error) error {
	err := validate()
	if err != nil {
		resultValidationError.
			With(prometheus.Labels{
				errTypeLabel: errors.Type(err),
			}).
			Inc()
	}
	return err
}
