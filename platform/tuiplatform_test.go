package platform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/effect"
	"lautenbacher.net/ledstrip/led"
)

func TestKeyCommand(t *testing.T) {
	state := controller.LightState{Power: true, Brightness: 250, Hue: 345, Saturation: 100, Effect: effect.Sparkles}
	names := effect.Names()

	cmd, ok := keyCommand('p', state, names)
	require.True(t, ok)
	assert.False(t, *cmd.Power)

	cmd, _ = keyCommand('+', state, names)
	assert.Equal(t, 255, *cmd.Brightness, "brightness saturates")

	cmd, _ = keyCommand('-', controller.LightState{Brightness: 10}, names)
	assert.Equal(t, 1, *cmd.Brightness, "minus never switches off")

	cmd, _ = keyCommand('e', state, names)
	assert.Equal(t, effect.Static, *cmd.Effect, "effect cycling wraps around")

	cmd, _ = keyCommand('e', controller.LightState{Effect: "Unknown"}, names)
	assert.Equal(t, names[0], *cmd.Effect)

	cmd, _ = keyCommand('h', state, names)
	assert.InDelta(t, 15, *cmd.Hue, 1e-9)

	cmd, _ = keyCommand('s', state, names)
	assert.InDelta(t, 0, *cmd.Saturation, 1e-9)
	cmd, _ = keyCommand('s', controller.LightState{Saturation: 50}, names)
	assert.InDelta(t, 75, *cmd.Saturation, 1e-9)

	_, ok = keyCommand('x', state, names)
	assert.False(t, ok)
}

func TestBlockChars(t *testing.T) {
	top, bottom := blockChars(1)
	assert.Equal(t, " ", top)
	assert.Equal(t, "▁", bottom)

	top, bottom = blockChars(24)
	assert.Equal(t, " ", top)
	assert.Equal(t, "█", bottom)

	top, bottom = blockChars(25)
	assert.Equal(t, "▁", top)
	assert.Equal(t, "█", bottom)

	top, _ = blockChars(100)
	assert.Equal(t, "█", top)
	top, _ = blockChars(255)
	assert.Equal(t, "▒", top)
}

func TestScaledColor(t *testing.T) {
	assert.Equal(t, "[#000000]", scaledColor(led.Black))
	assert.Equal(t, "[#ff8000]", scaledColor(led.Led{Red: 100, Green: 50}))
	assert.Equal(t, "[#ffffff]", scaledColor(led.Gray(3)))
}

func TestRenderLeds(t *testing.T) {
	segs := parseSegments([]config.SegmentConfig{{FirstLed: 0, LastLed: 1}}, 4)
	text := renderLeds(segs, []led.Led{{}, {Red: 200}, {Red: 200}, {Red: 200}})

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  [#ff0000]"), "dark pixel is blank, lit pixel is coloured: %q", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "··"), "the gap is drawn as dots: %q", lines[1])
}

func TestIntroText(t *testing.T) {
	text := getIntroText(controller.LightState{Power: true, Brightness: 42, Effect: effect.Rain})
	assert.Contains(t, text, "ON")
	assert.Contains(t, text, "42")
	assert.Contains(t, text, "Rain")
}
