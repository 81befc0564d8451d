package report

import (
	"bytes"
	"context"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/smoketest"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeInvalidResult = "invalid-smoke-test-result"
	ErrTypeSendFailed    = "report-send-failed"
)

// ReportHandler forwards smoke test results to a collecting endpoint.
type ReportHandler struct {
	Endpoint   string
	Transport  http.RoundTripper
	ResultChan chan smoketest.Result //buffered
}

// SendResult queues a result. It drops the result when the queue is full.
func (rh ReportHandler) SendResult(ctx context.Context, res smoketest.Result) error {
	select {
	case rh.ResultChan <- res:
		return nil
	default:
		return errors.New("report queue is full").
			WithTag("endpoint", rh.Endpoint)
	}
}

func (rh ReportHandler) HandleResults(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case res := <-rh.ResultChan:
				if err := instrumentResultValidation(func() error {
					return VerifyResult(res)
				}); err != nil {
					logs.Warn(errors.New("invalid smoke test result").
						WithTag("result", res).
						Wrap(err))
					continue
				}

				if err := rh.Forward(ctx, res); err != nil {
					logs.Warn(errors.New("forwarding smoke test result failed").Wrap(err))
				}
			}
		}
	}()
}

func (rh ReportHandler) Forward(ctx context.Context, res smoketest.Result) error {
	return instrumentReportSend(rh.Endpoint, func() error {
		body, err := json.Marshal(res)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rh.Endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		client := http.Client{Transport: rh.Transport}
		resp, err := client.Do(req)
		if err != nil {
			return errors.New("sending report failed").
				WithType(ErrTypeSendFailed).
				Wrap(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return errors.New("report endpoint rejected the result").
				WithType(ErrTypeSendFailed).
				WithTag("status", resp.StatusCode)
		}
		return nil
	})
}

// VerifyResult checks that a result describes a finished smoke test.
func VerifyResult(res smoketest.Result) error {
	switch res.Status {
	case smoketest.StatusSuccess:
		if res.Error != "" {
			return errors.New("successful result with an error").
				WithType(ErrTypeInvalidResult)
		}

	case smoketest.StatusFailed:
		if res.Error == "" {
			return errors.New("failed result without error").
				WithType(ErrTypeInvalidResult)
		}

	default:
		return errors.New("unknown result status").
			WithType(ErrTypeInvalidResult).
			WithTag("status", res.Status)
	}

	if res.ToEndpoint == "" {
		return errors.New("missing tested endpoint").
			WithType(ErrTypeInvalidResult)
	}
	return nil
}
