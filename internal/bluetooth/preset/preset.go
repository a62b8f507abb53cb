// Package preset implements the per-endpoint preset store described in
// spec.md §3 ("Preset") and §4.2: a capabilities blob plus an ordered list
// of preferred concrete configurations.
//
// Grounded on struct a2dp_preset / the presets GSList in
// original_source/android/a2dp.c.
package preset

// Preset is an opaque codec configuration blob, interpreted only by the
// codec validator registered for its codec type.
type Preset struct {
	Bytes []byte
}

// New copies b into a new Preset so callers cannot mutate stored presets
// through an aliased slice.
func New(b []byte) Preset {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Preset{Bytes: cp}
}

// Equal reports whether two presets carry identical bytes.
func (p Preset) Equal(o Preset) bool {
	if len(p.Bytes) != len(o.Bytes) {
		return false
	}
	for i := range p.Bytes {
		if p.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

// List is an endpoint's preset list: Caps is the head (the advertised
// capabilities mask, used to answer GET_CAPABILITIES and as the fallback
// validation target), Preferred is the ordered tail consulted top-to-bottom
// during local selection (spec.md §4.2).
type List struct {
	Caps      Preset
	Preferred []Preset
}

// Contains reports whether p is reference-equal (by value, since Preset is
// a value type here) to any preset in the endpoint's preferred list. This
// backs the "is this setup's preset shared with the endpoint" check in
// spec.md §3's preset-ownership invariant.
func (l List) Contains(p Preset) bool {
	for _, pref := range l.Preferred {
		if pref.Equal(p) {
			return true
		}
	}
	return false
}
