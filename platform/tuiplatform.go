package platform

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/effect"
	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/logging"
)

const (
	brightnessStep = 16
	hueStep        = 30
	saturationStep = 25
)

type TUIPlatform struct {
	*AbstractPlatform
	tviewapp     *tview.Application
	intro        *tview.TextView
	ledDisplay   *tview.TextView
	logView      *tview.TextView
	ossignalChan chan os.Signal
	logFlushOnce sync.Once

	controlMu sync.RWMutex
	control   Control
	lastState controller.LightState
}

func NewTUIPlatform(conf *config.Config, ossignalchan chan os.Signal) *TUIPlatform {
	inst := &TUIPlatform{
		ossignalChan: ossignalchan,
	}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.tuiDisplayFunc)
	return inst
}

// SetControl connects the keyboard to a running light. Keys other than
// quit and reload are ignored until then.
func (s *TUIPlatform) SetControl(c Control) {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	s.control = c
}

func (s *TUIPlatform) getControl() Control {
	s.controlMu.RLock()
	defer s.controlMu.RUnlock()
	return s.control
}

func (s *TUIPlatform) Start() error {
	s.initSimulationTUI()
	s.startDisplayDriver()
	return nil
}

func (s *TUIPlatform) Stop() {
	s.stopDisplayDriver()
	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
	logging.BufferOutput()
}

// tuiDisplayFunc renders the frame off the UI goroutine and only hands
// the finished text to tview.
func (s *TUIPlatform) tuiDisplayFunc(leds []led.Led) {
	text := renderLeds(s.segments, leds)
	var intro string
	if c := s.getControl(); c != nil {
		if state := c.RenderState(); state != s.lastState {
			s.lastState = state
			intro = getIntroText(state)
		}
	}
	s.tviewapp.QueueUpdateDraw(func() {
		s.ledDisplay.SetText(text)
		if intro != "" {
			s.intro.SetText(intro)
		}
	})
}

// getIntroText generates the dynamic text for the top info pane.
func getIntroText(state controller.LightState) string {
	power := "[#ff0000]OFF[white]"
	if state.Power {
		power = "[#00ff00]ON[white]"
	}
	line1 := fmt.Sprintf("Power %s | Brightness [#ffff00]%-3d[white] | Effect [#ffff00]%s[white] | Hue %.0f Sat %.0f",
		power, state.Brightness, state.Effect, state.Hue, state.Saturation)
	line2 := "Hit [#ff0000]p[-] power, [#ff0000]+[-]/[#ff0000]-[-] brightness, [#ff0000]e[-] effect, [#ff0000]h[-] hue, [#ff0000]s[-] saturation"
	line3 := "Hit [#ff0000]q[-] to exit, [#ff0000]r[-] to reload, [#ff0000]Up/Down[-] to scroll logs"

	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

// keyCommand maps a key press to a command relative to state.
func keyCommand(key rune, state controller.LightState, names []effect.Name) (controller.Command, bool) {
	var cmd controller.Command
	switch key {
	case 'p', 'P':
		return cmd.WithPower(!state.Power), true
	case '+':
		return cmd.WithBrightness(min(state.Brightness+brightnessStep, 255)), true
	case '-':
		return cmd.WithBrightness(max(state.Brightness-brightnessStep, 1)), true
	case 'e', 'E':
		if len(names) == 0 {
			return cmd, false
		}
		next := (slices.Index(names, state.Effect) + 1) % len(names)
		return cmd.WithEffect(names[next]), true
	case 'h', 'H':
		return cmd.WithHue(math.Mod(state.Hue+hueStep, 360)), true
	case 's', 'S':
		return cmd.WithSaturation(math.Mod(state.Saturation+saturationStep, 100+saturationStep)), true
	}
	return cmd, false
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	// --- Intro Pane ---
	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(getIntroText(controller.LightState{Effect: effect.Static}))
	s.intro.SetBorder(true).SetTitle(" LED Strip Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	// --- LED Display Pane ---
	s.ledDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.ledDisplay.SetBorder(true)
	s.ledDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	// --- Log Pane ---
	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	// --- Layout ---
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 5, 0, false).
		AddItem(s.ledDisplay, 4, 0, false).
		AddItem(s.logView, 0, 1, true)

	// --- Flush logs after first draw ---
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logging.SetOutput(tview.ANSIWriter(s.logView))
			s.setReady()
		})
	})

	// --- Input Handling ---
	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				s.ossignalChan <- os.Interrupt
				return nil
			case 'r', 'R':
				s.ossignalChan <- syscall.SIGHUP
				return nil
			}
			c := s.getControl()
			if c == nil {
				return event
			}
			if cmd, ok := keyCommand(event.Rune(), c.RenderState(), effect.Names()); ok {
				slog.Debug("Key command", "key", string(event.Rune()), "command", cmd)
				c.Submit(cmd)
				return nil
			}
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	// --- Start TUI ---
	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
}

// renderLeds draws the strip as two text rows, segment by segment.
func renderLeds(segments []*segment, leds []led.Led) string {
	tops := make([]string, len(segments))
	bots := make([]string, len(segments))
	for i, seg := range segments {
		seg.setLeds(leds)
		tops[i], bots[i] = simulateLedSegment(seg)
	}
	return " " + strings.Join(tops, "") + "\n " + strings.Join(bots, "")
}

// simulateLedSegment generates the two-line representation for a single
// segment. Reversed segments are shown in logical order.
func simulateLedSegment(segment *segment) (string, string) {
	if !segment.visible {
		length := segment.length()
		return strings.Repeat(" ", length), strings.Repeat("·", length)
	}

	values := slices.Clone(segment.leds)
	if segment.reverse {
		slices.Reverse(values)
	}
	var buf1, buf2 strings.Builder
	buf1.Grow(len(values) * (len("[-][#000000]") + 1))
	buf2.Grow(len(values) * (len("[-][#000000]") + 1))

	for _, v := range values {
		if v.IsEmpty() {
			buf1.WriteString(" ")
			buf2.WriteString(" ")
			continue
		}
		value := int(math.Round((float64(v.Red) + float64(v.Green) + float64(v.Blue)) / 3.0))
		colorStr := scaledColor(v)
		buf1.WriteString(colorStr)
		buf2.WriteString(colorStr)

		topChar, bottomChar := blockChars(value)
		buf1.WriteString(topChar)
		buf2.WriteString(bottomChar)
		buf1.WriteString("[-]")
		buf2.WriteString("[-]")
	}
	return buf1.String(), buf2.String()
}

var partialBlocks = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// blockChars maps an average channel value to a bar two characters high.
func blockChars(value int) (string, string) {
	switch {
	case value <= 24:
		return " ", partialBlocks[min(max((value-1)/3, 0), 7)]
	case value <= 48:
		return partialBlocks[min((value-25)/3, 7)], "█"
	case value <= 128:
		return "█", "█"
	default:
		return "▒", "█"
	}
}

// scaledColor normalises a pixel to full intensity so the hue stays
// visible for dim pixels; the bar height shows the brightness.
func scaledColor(l led.Led) string {
	maxColor := max(l.Red, l.Green, l.Blue)
	if maxColor == 0 {
		return "[#000000]"
	}
	m := float64(maxColor)
	c := colorful.Color{R: float64(l.Red) / m, G: float64(l.Green) / m, B: float64(l.Blue) / m}
	return "[" + c.Hex() + "]"
}
