package oracle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out successive price requests to stay under a source's
// rate limit.
type Pacer interface {
	Wait(ctx context.Context) error
}

type intervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer lets one request through immediately and each
// following one no sooner than d after the previous. The pacer is shared
// by all requests made through the source it guards. d <= 0 disables
// pacing.
func NewIntervalPacer(d time.Duration) Pacer {
	if d <= 0 {
		return NoPacer
	}
	return &intervalPacer{limiter: rate.NewLimiter(rate.Every(d), 1)}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error { return ctx.Err() }

// NoPacer never delays.
var NoPacer Pacer = noPacer{}
