package pubsub

import (
	"context"
	"time"

	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/led"
)

const (
	ConnectedHold = 750 * time.Millisecond
	FailedHold    = 500 * time.Millisecond
)

// Indicator shows the broker connection on the strip itself.
type Indicator interface {
	ShowStatus(c led.Led)
	UpdateStatus(c led.Led) bool
	ClearStatus() bool
}

// Flash shows each colour for hold and then hands the strip back to the
// light state. A command arriving in between ends the flash early.
func Flash(ctx context.Context, ind Indicator, hold time.Duration, colors ...led.Led) {
	if ind == nil {
		return
	}
	defer ind.ClearStatus()
	for i, c := range colors {
		if i == 0 {
			ind.ShowStatus(c)
		} else if !ind.UpdateStatus(c) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(hold):
		}
	}
}

// FlashConnected is the green flash after a successful subscribe.
func FlashConnected(ctx context.Context, ind Indicator) {
	Flash(ctx, ind, ConnectedHold, controller.StatusConnected)
}

// FlashFailed fades from orange to dim orange after a failed attempt.
func FlashFailed(ctx context.Context, ind Indicator) {
	Flash(ctx, ind, FailedHold, controller.StatusFailed, controller.StatusFailedDim)
}
