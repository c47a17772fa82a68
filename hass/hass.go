// Package hass speaks the Home Assistant JSON schema for lights: it
// parses commands, renders state and builds the discovery announcement.
package hass

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/effect"
	"lautenbacher.net/ledstrip/led"
)

const (
	StateOn  = "ON"
	StateOff = "OFF"

	// EffectOff is how Home Assistant names the absence of an effect.
	EffectOff = "EFFECT_OFF"

	PayloadAvailable    = "true"
	PayloadNotAvailable = "false"
	StatusOnline        = "online"
)

var ErrEmptyCommand = errors.New("command contains no known field")

// Effects describes the effect catalogue being advertised.
type Effects interface {
	Names() []effect.Name
	IsColorCapable(name effect.Name) bool
}

// Topics derives every topic of one light from the discovery prefix and
// the client id.
type Topics struct {
	Prefix   string
	ClientID string
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/light/%s", t.Prefix, t.ClientID)
}

func (t Topics) State() string        { return t.base() }
func (t Topics) Command() string      { return t.base() + "/set" }
func (t Topics) Availability() string { return t.base() + "/available" }
func (t Topics) Config() string       { return t.base() + "/config" }

// Status is where Home Assistant announces that it (re)started.
func (t Topics) Status() string { return t.Prefix + "/status" }

// Codec converts between the light state and Home Assistant payloads.
type Codec struct {
	Name    string
	Topics  Topics
	effects Effects
}

func NewCodec(name string, topics Topics, effects Effects) *Codec {
	return &Codec{Name: name, Topics: topics, effects: effects}
}

type colorPayload struct {
	H *float64 `json:"h,omitempty"`
	S *float64 `json:"s,omitempty"`
	R *int     `json:"r,omitempty"`
	G *int     `json:"g,omitempty"`
	B *int     `json:"b,omitempty"`
}

type commandPayload struct {
	State      *string       `json:"state"`
	Brightness *float64      `json:"brightness"`
	Color      *colorPayload `json:"color"`
	Effect     *string       `json:"effect"`
}

// ParseCommand decodes a command payload. Fields that are missing stay
// unset. An RGB colour switches the light on with the colour's value as
// brightness unless the payload names a brightness itself.
func (s *Codec) ParseCommand(data []byte) (controller.Command, error) {
	var payload commandPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return controller.Command{}, fmt.Errorf("decoding command: %w", err)
	}

	var cmd controller.Command
	if c := payload.Color; c != nil {
		if c.R != nil && c.G != nil && c.B != nil {
			rgb := led.Led{
				Red:   byte(led.ClampInt(*c.R, 0, 255)),
				Green: byte(led.ClampInt(*c.G, 0, 255)),
				Blue:  byte(led.ClampInt(*c.B, 0, 255)),
			}
			h, sat, v := led.RGBToHSV(rgb)
			cmd = cmd.WithHue(h).WithSaturation(sat).WithPower(true).
				WithBrightness(int(math.Round(v / 100 * 255)))
		}
		if c.H != nil {
			cmd = cmd.WithHue(*c.H)
		}
		if c.S != nil {
			cmd = cmd.WithSaturation(*c.S)
		}
	}
	if payload.State != nil {
		switch {
		case strings.EqualFold(*payload.State, StateOn):
			cmd = cmd.WithPower(true)
		case strings.EqualFold(*payload.State, StateOff):
			cmd = cmd.WithPower(false)
		}
	}
	if payload.Brightness != nil {
		cmd = cmd.WithBrightness(int(math.Round(*payload.Brightness)))
	}
	if payload.Effect != nil {
		name := effect.Name(*payload.Effect)
		if *payload.Effect == EffectOff {
			name = effect.Static
		}
		cmd = cmd.WithEffect(name)
	}

	if cmd.IsEmpty() {
		return cmd, ErrEmptyCommand
	}
	return cmd, nil
}

type hsPayload struct {
	H int `json:"h"`
	S int `json:"s"`
}

type statePayload struct {
	State      string     `json:"state"`
	Effect     string     `json:"effect"`
	Brightness int        `json:"brightness"`
	ColorMode  string     `json:"color_mode"`
	Color      *hsPayload `json:"color,omitempty"`
}

// StatePayload renders the light state. Colour capable effects report
// hue and saturation, all others report brightness only.
func (s *Codec) StatePayload(state controller.LightState) ([]byte, error) {
	payload := statePayload{
		State:      StateOff,
		Effect:     string(state.Effect),
		Brightness: state.Brightness,
		ColorMode:  "brightness",
	}
	if state.Power {
		payload.State = StateOn
	}
	if s.effects.IsColorCapable(state.Effect) {
		if state.Effect == effect.Static {
			payload.Effect = EffectOff
		}
		payload.ColorMode = "hs"
		payload.Color = &hsPayload{
			H: int(math.Round(state.Hue)),
			S: int(math.Round(state.Saturation)),
		}
	}
	return json.Marshal(payload)
}

type availabilityPayload struct {
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
	Topic               string `json:"topic"`
}

type discoveryPayload struct {
	Name                string              `json:"name"`
	Schema              string              `json:"schema"`
	QoS                 int                 `json:"qos"`
	UniqueID            string              `json:"unique_id"`
	Brightness          bool                `json:"brightness"`
	BrightnessScale     int                 `json:"brightness_scale"`
	SupportedColorModes []string            `json:"supported_color_modes"`
	StateTopic          string              `json:"state_topic"`
	CommandTopic        string              `json:"command_topic"`
	Retain              bool                `json:"retain"`
	Effect              bool                `json:"effect"`
	EffectList          []string            `json:"effect_list"`
	Availability        availabilityPayload `json:"availability"`
}

// DiscoveryPayload builds the announcement published on Topics.Config.
func (s *Codec) DiscoveryPayload() ([]byte, error) {
	names := s.effects.Names()
	effectList := make([]string, len(names))
	for i, n := range names {
		effectList[i] = string(n)
	}
	return json.Marshal(discoveryPayload{
		Name:                s.Name,
		Schema:              "json",
		QoS:                 1,
		UniqueID:            s.Topics.ClientID,
		Brightness:          true,
		BrightnessScale:     255,
		SupportedColorModes: []string{"hs"},
		StateTopic:          s.Topics.State(),
		CommandTopic:        s.Topics.Command(),
		Retain:              true,
		Effect:              true,
		EffectList:          effectList,
		Availability: availabilityPayload{
			PayloadAvailable:    PayloadAvailable,
			PayloadNotAvailable: PayloadNotAvailable,
			Topic:               s.Topics.Availability(),
		},
	})
}
