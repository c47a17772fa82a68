// Package nightlight switches the light on at sunset and off at sunrise.
package nightlight

import (
	"context"
	"log/slog"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/effect"
)

// Polar day or night can last for months.
const maxSearchDays = 370

// retryDelay is used when no transition could be found at all.
const retryDelay = 24 * time.Hour

type Submitter interface {
	Submit(cmd controller.Command)
}

// NextTransition returns the first sunrise or sunset strictly after now
// and whether it switches the light on (sunset) or off (sunrise). The
// returned time is zero if the sun neither rises nor sets within a year.
func NextTransition(now time.Time, lat, lon float64) (time.Time, bool) {
	day := now.UTC()
	// A sunset that belongs to yesterday's UTC date may still be ahead.
	for i := -1; i < maxSearchDays; i++ {
		d := day.AddDate(0, 0, i)
		rise, set := sunrise.SunriseSunset(lat, lon, d.Year(), d.Month(), d.Day())

		var next time.Time
		var on bool
		if !rise.IsZero() && rise.After(now) {
			next = rise
		}
		if !set.IsZero() && set.After(now) && (next.IsZero() || set.Before(next)) {
			next, on = set, true
		}
		if !next.IsZero() {
			return next, on
		}
	}
	return time.Time{}, false
}

// IsNight reports whether the sun is down at now.
func IsNight(now time.Time, lat, lon float64) bool {
	at, on := NextTransition(now, lat, lon)
	return !at.IsZero() && !on
}

type Scheduler struct {
	submit     Submitter
	latitude   float64
	longitude  float64
	brightness int
	effect     effect.Name

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

func NewScheduler(submit Submitter, latitude, longitude float64, brightness int, name effect.Name) *Scheduler {
	return &Scheduler{
		submit:     submit,
		latitude:   latitude,
		longitude:  longitude,
		brightness: brightness,
		effect:     name,
		now:        time.Now,
		after:      time.After,
	}
}

func (s *Scheduler) onCommand() controller.Command {
	return controller.Command{}.WithPower(true).WithBrightness(s.brightness).WithEffect(s.effect)
}

func (s *Scheduler) offCommand() controller.Command {
	return controller.Command{}.WithPower(false)
}

// Run submits the night command right away if it is already dark and
// then follows the sun until ctx is done. Users may still switch the
// light in between; the next transition wins again.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Starting nightlight", "latitude", s.latitude, "longitude", s.longitude, "effect", s.effect)
	if IsNight(s.now(), s.latitude, s.longitude) {
		slog.Info("Nightlight: it is dark already, switching on")
		s.submit.Submit(s.onCommand())
	}

	for {
		now := s.now()
		at, on := NextTransition(now, s.latitude, s.longitude)
		wait := retryDelay
		if !at.IsZero() {
			wait = at.Sub(now)
		} else {
			slog.Warn("Nightlight: no sunrise or sunset found, retrying later", "retry", retryDelay)
		}
		slog.Debug("Nightlight: waiting for next transition", "at", at, "on", on)

		select {
		case <-ctx.Done():
			slog.Info("Nightlight stopped")
			return
		case <-s.after(wait):
		}
		if ctx.Err() != nil {
			return
		}
		if at.IsZero() {
			continue
		}
		if on {
			slog.Info("Nightlight: sunset, switching on")
			s.submit.Submit(s.onCommand())
		} else {
			slog.Info("Nightlight: sunrise, switching off")
			s.submit.Submit(s.offCommand())
		}
	}
}
