package platform

import (
	"log/slog"
	"sort"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/led"
)

// segment is a contiguous range of logical pixels. Invisible segments
// fill the gaps between configured ones and have no physical LEDs.
type segment struct {
	firstLed int
	lastLed  int
	visible  bool
	reverse  bool
	leds     []led.Led
}

// parseSegments returns segments covering 0..ledsTotal-1 in order.
// Without configuration the whole strip is one visible segment.
func parseSegments(cfg []config.SegmentConfig, ledsTotal int) []*segment {
	if ledsTotal < 1 {
		ledsTotal = 1
	}
	if len(cfg) == 0 {
		return []*segment{newSegment(0, ledsTotal-1, false, true, ledsTotal)}
	}

	var segments []*segment
	all := make([]bool, ledsTotal)
	for _, c := range cfg {
		seg := newSegment(c.FirstLed, c.LastLed, c.Reverse, true, ledsTotal)
		overlap := false
		for i := seg.firstLed; i <= seg.lastLed; i++ {
			overlap = overlap || all[i]
		}
		if overlap {
			slog.Warn("Ignoring overlapping display segment", "first", seg.firstLed, "last", seg.lastLed)
			continue
		}
		for i := seg.firstLed; i <= seg.lastLed; i++ {
			all[i] = true
		}
		segments = append(segments, seg)
	}

	start := -1
	for index, elem := range all {
		if start == -1 && !elem {
			start = index
		} else if start != -1 && elem {
			segments = append(segments, newSegment(start, index-1, false, false, ledsTotal))
			start = -1
		}
	}
	if start != -1 {
		segments = append(segments, newSegment(start, len(all)-1, false, false, ledsTotal))
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].firstLed < segments[j].firstLed })
	return segments
}

func newSegment(firstled, lastled int, reverse bool, visible bool, ledsTotal int) *segment {
	if firstled > lastled {
		slog.Warn("First led index is bigger than last led index, swapping", "first", firstled, "last", lastled)
		firstled, lastled = lastled, firstled
	}
	return &segment{
		firstLed: clamp(firstled, ledsTotal),
		lastLed:  clamp(lastled, ledsTotal),
		visible:  visible,
		reverse:  reverse,
	}
}

func (s *segment) length() int {
	return s.lastLed - s.firstLed + 1
}

// setLeds copies the segment's range out of frame, reversing it if
// configured. frame itself is not modified.
func (s *segment) setLeds(frame []led.Led) {
	if !s.visible {
		return
	}
	if cap(s.leds) < s.length() {
		s.leds = make([]led.Led, s.length())
	}
	s.leds = s.leds[:s.length()]
	for i := range s.leds {
		src := s.firstLed + i
		if s.reverse {
			src = s.lastLed - i
		}
		if src < len(frame) {
			s.leds[i] = frame[src]
		} else {
			s.leds[i] = led.Black
		}
	}
}

// getLeds returns the LEDs for the segment if visible, otherwise nil.
func (s *segment) getLeds() []led.Led {
	if s.visible {
		return s.leds
	}
	return nil
}

// physicalFrame concatenates the visible segments in chain order.
func physicalFrame(segments []*segment, frame []led.Led) []led.Led {
	out := make([]led.Led, 0, len(frame))
	for _, seg := range segments {
		seg.setLeds(frame)
		out = append(out, seg.getLeds()...)
	}
	return out
}

func clamp(index int, ledsTotal int) int {
	if index < 0 {
		slog.Warn("Led index is smaller than 0, using 0", "index", index)
		return 0
	} else if index <= ledsTotal-1 {
		return index
	}
	slog.Warn("Led index is bigger than max index, using max", "index", index, "max", ledsTotal-1)
	return ledsTotal - 1
}
