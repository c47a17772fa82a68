package effect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/strip"
)

const ledsTotal = 50

// runFor starts e in the background and returns a function that cancels
// it and waits for it to return.
func runFor(t *testing.T, e Effect, w *strip.Writer, p Params) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx, w, p)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("%s did not stop after cancel", e.Name())
		}
	}
}

func slow(e Effect) Effect {
	e.Settings().FrameDelay = time.Hour
	return e
}

func allEqual(leds []led.Led, c led.Led) bool {
	for _, l := range leds {
		if l != c {
			return false
		}
	}
	return true
}

func TestNames(t *testing.T) {
	assert.Equal(t, []Name{"None", "Storm", "Rain", "Clouds", "Snow", "Sun", "Sky", "Chaser", "Sparkles"}, Names())
	assert.Equal(t, []Name{"None", "Chaser", "Sparkles"}, ColorNames())
	assert.Equal(t, NewRegistry(NewRand(1)).ColorNames(), ColorNames())

	names := Names()
	names[0] = "Broken"
	assert.Equal(t, Static, Names()[0], "Names returns a copy")
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(NewRand(1))
	for _, n := range Names() {
		e, ok := r.Lookup(n)
		require.True(t, ok, "effect %s should be registered", n)
		assert.Equal(t, n, e.Name())
		assert.Equal(t, n, r.Get(n).Name())
	}

	_, ok := r.Lookup("Foo")
	assert.False(t, ok)
	assert.Equal(t, Static, r.Get("Foo").Name(), "unknown names fall back to Static")
}

func TestRegistry_IsColorCapable(t *testing.T) {
	r := NewRegistry(NewRand(1))
	for _, n := range []Name{Static, Sparkles, Chaser} {
		assert.True(t, r.IsColorCapable(n), n)
	}
	for _, n := range []Name{Storm, Rain, Clouds, Snow, Sun, Sky, "Foo"} {
		assert.False(t, r.IsColorCapable(n), n)
	}
}

func TestRegistry_Tune(t *testing.T) {
	r := NewRegistry(NewRand(1))
	assert.True(t, r.Tune(Clouds, func(t *Tuning) { t.FrameDelay = time.Second }))
	assert.Equal(t, time.Second, r.Get(Clouds).Settings().FrameDelay)
	assert.False(t, r.Tune("Foo", func(t *Tuning) {}))
}

func TestDefaultTunings(t *testing.T) {
	r := NewRegistry(NewRand(1))
	expected := map[Name]Tuning{
		Static:   {StepSize: 5, StepDelay: 5 * time.Millisecond},
		Sparkles: {StepSize: 3, StepDelay: time.Millisecond, FrameDelay: 200 * time.Millisecond, MinBrightness: 30, MaxBrightness: 255},
		Chaser:   {StepSize: 2, StepDelay: time.Millisecond, FrameDelay: 150 * time.Millisecond, MinBrightness: 30, MaxBrightness: 255},
		Storm:    {StepSize: 5, StepDelay: time.Millisecond, FrameDelay: 300 * time.Millisecond, MinBrightness: 10, MaxBrightness: 255},
		Rain:     {StepSize: 1, StepDelay: time.Millisecond, FrameDelay: 200 * time.Millisecond, MinBrightness: 10, MaxBrightness: 255},
		Clouds:   {StepSize: 5, StepDelay: time.Millisecond, FrameDelay: 800 * time.Millisecond, MinBrightness: 10, MaxBrightness: 230},
		Snow:     {StepSize: 5, StepDelay: time.Millisecond, FrameDelay: 200 * time.Millisecond, MinBrightness: 10, MaxBrightness: 255},
		Sun:      {StepSize: 2, StepDelay: time.Millisecond, FrameDelay: 425 * time.Millisecond, MinBrightness: 40, MaxBrightness: 255},
		Sky:      {StepSize: 2, StepDelay: time.Millisecond, FrameDelay: 700 * time.Millisecond, MinBrightness: 10, MaxBrightness: 230},
	}
	for name, tuning := range expected {
		assert.Equal(t, tuning, *r.Get(name).Settings(), name)
	}
}

func TestEffects_PowerOffConvergesToBlackAndReturns(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry(NewRand(1))
	for _, name := range Names() {
		t.Run(string(name), func(t *testing.T) {
			b := strip.NewBuffers(ledsTotal)
			w := b.NewWriter()
			w.Update(func(f *strip.Frame) {
				f.FillCurrent(led.Gray(200))
				f.FillTarget(led.Gray(200))
			})

			done := make(chan struct{})
			go func() {
				r.Get(name).Run(context.Background(), w, Params{Power: false, Brightness: 200, Hue: 10, Saturation: 50})
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("effect with power off must terminate")
			}

			assert.True(t, allEqual(b.Target(), led.Black))
			for range 100 {
				b.Step()
			}
			assert.True(t, allEqual(b.Current(), led.Black), "strip should converge to black")
		})
	}
}

func TestStatic_PureGreen(t *testing.T) {
	b := strip.NewBuffers(ledsTotal)
	NewStatic().Run(context.Background(), b.NewWriter(), Params{Power: true, Brightness: 128, Hue: 120, Saturation: 100})

	assert.True(t, allEqual(b.Target(), led.Led{Green: 128}))
	stepSize, stepDelay := b.Animation()
	assert.Equal(t, 5, stepSize)
	assert.Equal(t, 5*time.Millisecond, stepDelay)
}

func TestStatic_Achromatic(t *testing.T) {
	b := strip.NewBuffers(3)
	NewStatic().Run(context.Background(), b.NewWriter(), Params{Power: true, Brightness: 255, Hue: 200, Saturation: 0})
	assert.True(t, allEqual(b.Target(), led.Gray(255)))
}

func TestSparkles_Background(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewSparkles(NewRand(1))
	e.Chance = 0
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 255, Hue: 0, Saturation: 100})
	defer stop()

	background := led.HSVToRGB(0, 1, 0.3)
	assert.Eventually(t, func() bool { return allEqual(b.Target(), background) }, time.Second, time.Millisecond)
}

func TestSparkles_FlashAndRevert(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewSparkles(NewRand(1))
	e.Chance = 1
	e.Settings().FrameDelay = time.Millisecond
	b := strip.NewBuffers(4)
	// default colour, brightness raised to the lower clamp
	stop := runFor(t, e, b.NewWriter(), Params{Power: true, Brightness: 5})

	sparkle := led.HSVToRGB(DefaultHue/360.0, DefaultSaturation/100.0, 30.0/255)
	assert.Eventually(t, func() bool { return allEqual(b.Target(), sparkle) }, time.Second, time.Millisecond)
	stop()

	// a pixel whose current has reached the flash reverts to background
	background := led.HSVToRGB(DefaultHue/360.0, DefaultSaturation/100.0, 0.3*30/255)
	w := b.NewWriter()
	w.Update(func(f *strip.Frame) { f.FillCurrent(sparkle) })
	stop = runFor(t, slow(e), w, Params{Power: true, Brightness: 5})
	defer stop()
	assert.Eventually(t, func() bool { return allEqual(b.Target(), background) }, time.Second, time.Millisecond)
}

func TestChaser_AdvancesAndWraps(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewChaser()
	e.Settings().FrameDelay = time.Hour
	b := strip.NewBuffers(ledsTotal)
	w := b.NewWriter()
	stop := runFor(t, e, w, Params{Power: true, Brightness: 200, Hue: 120, Saturation: 100})

	color := led.Led{Green: 200}
	assert.Eventually(t, func() bool { return b.Current()[0] == color }, time.Second, time.Millisecond)
	stop()

	current := b.Current()
	lit := 0
	for _, c := range current {
		if !c.IsEmpty() {
			lit++
		}
	}
	assert.Equal(t, 1, lit, "exactly one pixel is lit after the first frame")
	assert.True(t, allEqual(b.Target(), led.Black))

	b.Step()
	assert.Equal(t, led.Led{Green: 198}, b.Current()[0], "the trail fades towards black")
}

func TestChaser_IndexWrapsModuloLength(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewChaser()
	e.Settings().FrameDelay = time.Millisecond
	b := strip.NewBuffers(3)
	w := b.NewWriter()
	stop := runFor(t, e, w, Params{Power: true, Brightness: 255})

	// after more frames than pixels every pixel has been visited and the
	// index wrapped without leaving the strip
	time.Sleep(30 * time.Millisecond)
	stop()
	for i, c := range b.Current() {
		assert.False(t, c.IsEmpty(), "pixel %d should have been lit", i)
	}
}

func TestStorm_LightningAndBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewStorm(NewRand(1))
	e.RaindropChance = 0
	e.LightningChance = 1
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 255})
	defer stop()

	assert.Eventually(t, func() bool {
		return allEqual(b.Current(), led.Gray(255)) && allEqual(b.Target(), led.Led{Red: 1, Green: 30, Blue: 120})
	}, time.Second, time.Millisecond)
}

func TestStorm_RaindropsWrittenToCurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewStorm(NewRand(1))
	e.RaindropChance = 1
	e.LightningChance = 0
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 255})

	assert.Eventually(t, func() bool { return !b.Current()[0].IsEmpty() }, time.Second, time.Millisecond)
	stop()
	for _, c := range b.Current() {
		assert.Less(t, c.Red, byte(50))
		assert.GreaterOrEqual(t, c.Green, byte(50))
		assert.Less(t, c.Green, byte(100))
		assert.GreaterOrEqual(t, c.Blue, byte(100))
	}
	assert.True(t, allEqual(b.Target(), led.Black), "raindrops leave the target alone")
}

func TestRain_BrightnessClamp(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewRain(NewRand(1))
	e.RaindropChance = 0
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 1})
	defer stop()

	expected := led.ScaleBrightness(led.Led{Green: 15, Blue: 60}, 10)
	assert.Eventually(t, func() bool { return allEqual(b.Target(), expected) }, time.Second, time.Millisecond)
	stepSize, _ := b.Animation()
	assert.Equal(t, 1, stepSize)
}

func TestClouds_HighlightAndNormal(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewClouds(NewRand(1))
	e.HighlightChance = 1
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 255})

	highlight := led.ScaleBrightness(led.Led{Red: 205, Green: 208, Blue: 178}, 230)
	assert.Eventually(t, func() bool { return allEqual(b.Target(), highlight) }, time.Second, time.Millisecond)
	stop()

	e.HighlightChance = 0
	e.LowlightChance = 1
	stop = runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 230})
	lowlight := led.ScaleBrightness(led.Led{Red: 125, Green: 128, Blue: 98}, 230)
	assert.Eventually(t, func() bool { return allEqual(b.Target(), lowlight) }, time.Second, time.Millisecond)
	stop()

	e.LowlightChance = 0
	stop = runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 230})
	defer stop()
	normal := led.ScaleBrightness(led.Led{Red: 165, Green: 168, Blue: 138}, 230)
	assert.Eventually(t, func() bool { return allEqual(b.Target(), normal) }, time.Second, time.Millisecond)
}

func TestSnow_Flakes(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewSnow(NewRand(1))
	e.SnowflakeChance = 1
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 255})
	defer stop()

	assert.Eventually(t, func() bool { return allEqual(b.Current(), led.Gray(227)) }, time.Second, time.Millisecond)
}

func TestSun_RangesAndFloor(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewSun(NewRand(1))
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 0})

	assert.Eventually(t, func() bool { return !b.Target()[0].IsEmpty() }, time.Second, time.Millisecond)
	stop()
	for _, c := range b.Target() {
		// brightness clamps to 40, blue scales below the floor
		assert.InDelta(t, 37, float64(c.Red), 3)
		assert.InDelta(t, 37, float64(c.Green), 3)
		assert.Equal(t, byte(25), c.Blue)
	}
}

func TestSky_Ranges(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewSky(NewRand(1))
	b := strip.NewBuffers(ledsTotal)
	stop := runFor(t, slow(e), b.NewWriter(), Params{Power: true, Brightness: 255})

	assert.Eventually(t, func() bool { return !b.Target()[0].IsEmpty() }, time.Second, time.Millisecond)
	stop()
	for _, c := range b.Target() {
		// brightness clamps to 230
		assert.LessOrEqual(t, c.Red, byte(36))
		assert.GreaterOrEqual(t, c.Green, byte(117))
		assert.LessOrEqual(t, c.Green, byte(171))
		assert.GreaterOrEqual(t, c.Blue, byte(153))
		assert.LessOrEqual(t, c.Blue, byte(198))
	}
}

func TestEffect_StopsWhenWriterRevoked(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewSky(NewRand(1))
	e.Settings().FrameDelay = time.Millisecond
	b := strip.NewBuffers(ledsTotal)
	w := b.NewWriter()

	done := make(chan struct{})
	go func() {
		e.Run(context.Background(), w, Params{Power: true, Brightness: 255})
		close(done)
	}()
	assert.Eventually(t, func() bool { return !b.Target()[0].IsEmpty() }, time.Second, time.Millisecond)

	next := b.NewWriter()
	next.Update(func(f *strip.Frame) { f.FillTarget(led.Black) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("effect kept running after its writer was revoked")
	}
	assert.True(t, allEqual(b.Target(), led.Black), "revoked effect must not paint")
}

func TestTuning_Clamp(t *testing.T) {
	assert.Equal(t, 0, Tuning{}.clamp(-5))
	assert.Equal(t, 255, Tuning{}.clamp(300))
	assert.Equal(t, 40, Tuning{MinBrightness: 40}.clamp(5), "minimum applies without a maximum")
	assert.Equal(t, 255, Tuning{MinBrightness: 40}.clamp(300))
	assert.Equal(t, 230, Tuning{MinBrightness: 10, MaxBrightness: 230}.clamp(255))
}

func TestStatic_MinBrightnessOverride(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := NewRegistry(NewRand(1))
	require.True(t, r.Tune(Static, func(t *Tuning) { t.MinBrightness = 51 }))

	b := strip.NewBuffers(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Get(Static).Run(ctx, b.NewWriter(), Params{Power: true, Brightness: 1})

	assert.True(t, allEqual(b.Target(), led.Gray(51)))
}
