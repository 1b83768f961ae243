package main

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/lox/bomweather/internal/bomerr"
)

// retry runs op, repeating it up to app.Retries more times while it fails
// with a transient transport error.
func (app *App) retry(ctx context.Context, op func() error) error {
	if app.Retries == 0 {
		return op()
	}

	operation := func() error {
		err := op()
		if err != nil && !bomerr.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = 2 * time.Minute
	b := backoff.WithContext(backoff.WithMaxRetries(bo, app.Retries), ctx)

	return backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		app.Logger.Warn("retrying", "error", err, "wait", wait)
	})
}

// writeMetrics prints the default registry in the text exposition format.
func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
