package effect

import "math/rand/v2"

// Registry maps effect names to their implementation. The set of
// effects is fixed at construction.
type Registry struct {
	effects map[Name]Effect
}

// NewRegistry builds all effects. A nil rng gets a randomly seeded one.
func NewRegistry(rng *rand.Rand) *Registry {
	if rng == nil {
		rng = NewRand(0)
	}
	all := []Effect{
		NewStatic(),
		NewStorm(rng),
		NewRain(rng),
		NewClouds(rng),
		NewSnow(rng),
		NewSun(rng),
		NewSky(rng),
		NewChaser(),
		NewSparkles(rng),
	}
	inst := &Registry{effects: make(map[Name]Effect, len(all))}
	for _, e := range all {
		inst.effects[e.Name()] = e
	}
	return inst
}

// Lookup returns the effect registered under name.
func (s *Registry) Lookup(name Name) (Effect, bool) {
	e, ok := s.effects[name]
	return e, ok
}

// Get returns the effect for name, falling back to Static for unknown
// names.
func (s *Registry) Get(name Name) Effect {
	if e, ok := s.effects[name]; ok {
		return e
	}
	return s.effects[Static]
}

// IsColorCapable reports whether the named effect renders hue and
// saturation. Unknown names are not.
func (s *Registry) IsColorCapable(name Name) bool {
	_, ok := s.effects[name].(ColorEffect)
	return ok
}

// Names returns every registered effect in announcement order.
func (s *Registry) Names() []Name {
	return Names()
}

// ColorNames returns the colour capable effects in announcement order.
func (s *Registry) ColorNames() []Name {
	var ret []Name
	for _, n := range names {
		if s.IsColorCapable(n) {
			ret = append(ret, n)
		}
	}
	return ret
}

// Tune adjusts the tuning of a registered effect. It must not be called
// while the effect is running.
func (s *Registry) Tune(name Name, fn func(t *Tuning)) bool {
	e, ok := s.effects[name]
	if !ok {
		return false
	}
	fn(e.Settings())
	return true
}

// ColorNames returns the colour capable effects in announcement order.
func ColorNames() []Name {
	ret := make([]Name, len(colorNames))
	copy(ret, colorNames)
	return ret
}
