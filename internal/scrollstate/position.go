// Package scrollstate defines the portable scroll-position value passed
// between a transcript view and the session cache, plus the sanitization
// rules that make arbitrary input safe to apply.
package scrollstate

import "math"

// Position describes where a reader was within a transcript. All fields
// are optional; a Position that survives Sanitize with no fields set is
// represented as nil ("no position").
type Position struct {
	// Index is a relative item index into the current items array.
	Index *int `json:"index,omitempty"`
	// Offset is the line offset below the top of the indexed item.
	// Only meaningful when Index is set.
	Offset *int `json:"offset,omitempty"`
	// ScrollTop is the absolute scroll distance from the top, in lines.
	ScrollTop *int `json:"scroll_top,omitempty"`
	// AtBottom pins the position to the end of the transcript.
	AtBottom bool `json:"at_bottom,omitempty"`
}

// Raw is the unvalidated wire form of a Position. Persisted or
// externally supplied positions are decoded into Raw and sanitized
// before use, so junk values (NaN, negatives, fractions) degrade to
// "no position" instead of becoming errors.
type Raw struct {
	Index     *float64 `json:"index,omitempty"`
	Offset    *float64 `json:"offset,omitempty"`
	ScrollTop *float64 `json:"scroll_top,omitempty"`
	AtBottom  bool     `json:"at_bottom,omitempty"`
}

// Sanitize validates r against the current item count and returns a
// clean Position, or nil if nothing survives.
//
// Rules: Index is kept only when finite, >= 0 and itemCount > 0, then
// floored and clamped to itemCount-1 (clamping covers the item set
// shrinking since capture; a negative index is junk and is dropped,
// taking Offset with it). Offset is kept only when Index survived and
// Offset is finite and >= 0. ScrollTop is kept when finite and >= 0.
// AtBottom is kept only when explicitly true.
func (r Raw) Sanitize(itemCount int) *Position {
	var out Position

	if r.Index != nil && isFinite(*r.Index) && *r.Index >= 0 && itemCount > 0 {
		idx := int(math.Floor(*r.Index))
		if idx > itemCount-1 {
			idx = itemCount - 1
		}
		out.Index = &idx

		if r.Offset != nil && isFinite(*r.Offset) && *r.Offset >= 0 {
			off := int(math.Floor(*r.Offset))
			out.Offset = &off
		}
	}

	if r.ScrollTop != nil && isFinite(*r.ScrollTop) && *r.ScrollTop >= 0 {
		st := int(math.Floor(*r.ScrollTop))
		out.ScrollTop = &st
	}

	out.AtBottom = r.AtBottom

	if out.Index == nil && out.ScrollTop == nil && !out.AtBottom {
		return nil
	}
	return &out
}

// Sanitize re-validates p against the current item count. Items may
// have changed since the position was captured, so Index is re-clamped.
// Returns nil when nothing survives. Sanitize is idempotent:
// p.Sanitize(n).Sanitize(n) always equals p.Sanitize(n).
func (p *Position) Sanitize(itemCount int) *Position {
	if p == nil {
		return nil
	}
	return p.raw().Sanitize(itemCount)
}

// Clone returns a deep copy so cached positions cannot be mutated
// through a shared pointer.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	out := Position{AtBottom: p.AtBottom}
	if p.Index != nil {
		idx := *p.Index
		out.Index = &idx
	}
	if p.Offset != nil {
		off := *p.Offset
		out.Offset = &off
	}
	if p.ScrollTop != nil {
		st := *p.ScrollTop
		out.ScrollTop = &st
	}
	return &out
}

// Equal reports whether two positions describe the same place.
func (p *Position) Equal(q *Position) bool {
	if p == nil || q == nil {
		return p == q
	}
	return intPtrEqual(p.Index, q.Index) &&
		intPtrEqual(p.Offset, q.Offset) &&
		intPtrEqual(p.ScrollTop, q.ScrollTop) &&
		p.AtBottom == q.AtBottom
}

func (p *Position) raw() Raw {
	r := Raw{AtBottom: p.AtBottom}
	if p.Index != nil {
		v := float64(*p.Index)
		r.Index = &v
	}
	if p.Offset != nil {
		v := float64(*p.Offset)
		r.Offset = &v
	}
	if p.ScrollTop != nil {
		v := float64(*p.ScrollTop)
		r.ScrollTop = &v
	}
	return r
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Int is a convenience for building positions in tests and call sites.
func Int(v int) *int { return &v }

// Float is the Raw counterpart of Int.
func Float(v float64) *float64 { return &v }
