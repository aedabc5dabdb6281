package pipeline

import (
	"time"

	"mediasort/internal/record"
	"mediasort/internal/stage"
)

type observers []stage.Observer

func (o observers) Observe(stageName string, rec *record.Record, outcome stage.Outcome, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.Observe(stageName, rec, outcome, elapsed, err)
	}
}
