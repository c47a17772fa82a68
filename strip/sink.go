package strip

import "lautenbacher.net/ledstrip/led"

// Sink receives the complete current buffer once per tick. The slice
// belongs to the sink.
type Sink interface {
	DisplayLeds(leds []led.Led)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(leds []led.Led)

func (f SinkFunc) DisplayLeds(leds []led.Led) {
	f(leds)
}

// PixelSetter is a device that is painted one pixel at a time.
type PixelSetter interface {
	SetPixel(index int, c led.Led)
}

// PixelSink turns a PixelSetter into a Sink that paints every pixel of
// every frame in index order.
func PixelSink(p PixelSetter) Sink {
	return SinkFunc(func(leds []led.Led) {
		for i, c := range leds {
			p.SetPixel(i, c)
		}
	})
}

// MultiSink fans a frame out to several sinks, each getting its own copy.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(leds []led.Led) {
		for i, sink := range sinks {
			if i == len(sinks)-1 {
				sink.DisplayLeds(leds)
			} else {
				sink.DisplayLeds(copyLeds(leds))
			}
		}
	})
}
