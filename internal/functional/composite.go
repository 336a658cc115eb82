package functional

import (
	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
)

// Scaled is weight·F.
type Scaled struct {
	weight float64
	f      Functional
}

// NewScaled creates weight·f. Prox requires weight ≥ 0.
func NewScaled(weight float64, f Functional) *Scaled {
	// Nested scaling collapses into a single weight.
	if s, ok := f.(*Scaled); ok {
		return &Scaled{weight: weight * s.weight, f: s.f}
	}
	return &Scaled{weight: weight, f: f}
}

// Weight returns the scalar weight.
func (s *Scaled) Weight() float64 { return s.weight }

// Inner returns the scaled term.
func (s *Scaled) Inner() Functional { return s.f }

// Capabilities returns the capabilities of the scaled term.
func (s *Scaled) Capabilities() Capability { return s.f.Capabilities() }

// Eval returns weight·f(x).
func (s *Scaled) Eval(x array.Value) (float64, error) {
	v, err := Eval(s.f, x)
	if err != nil {
		return 0, err
	}
	return s.weight * v, nil
}

// Grad returns weight·∇f(x).
func (s *Scaled) Grad(x array.Value) (array.Value, error) {
	g, err := Grad(s.f, x)
	if err != nil {
		return nil, err
	}
	return array.Scale(complex(s.weight, 0), g), nil
}

// Prox returns prox_f(v, weight·step).
func (s *Scaled) Prox(v array.Value, step float64) (array.Value, error) {
	switch {
	case s.weight < 0:
		return nil, errors.Errorf("prox of negatively scaled functional (weight %g)", s.weight)
	case s.weight == 0:
		return array.Clone(v), nil
	}
	return Prox(s.f, v, s.weight*step)
}

// Sum is an additive combination of terms. It is evaluable or
// differentiable when every term is; it is never proximable.
type Sum struct {
	terms []Functional
}

// NewSum creates the sum of terms.
func NewSum(terms ...Functional) *Sum {
	return &Sum{terms: terms}
}

// Capabilities returns the eval/grad capabilities shared by all terms.
func (s *Sum) Capabilities() Capability {
	c := CanEval | CanGrad
	for _, t := range s.terms {
		c &= t.Capabilities()
	}
	return c
}

// Eval returns Σ f_i(x).
func (s *Sum) Eval(x array.Value) (float64, error) {
	var total float64
	for i, t := range s.terms {
		v, err := Eval(t, x)
		if err != nil {
			return 0, errors.Wrapf(err, "term %d", i)
		}
		total += v
	}
	return total, nil
}

// Grad returns Σ ∇f_i(x).
func (s *Sum) Grad(x array.Value) (array.Value, error) {
	total := array.ZerosLike(x)
	for i, t := range s.terms {
		g, err := Grad(t, x)
		if err != nil {
			return nil, errors.Wrapf(err, "term %d", i)
		}
		total = array.Add(total, g)
	}
	return total, nil
}

// Separable applies one term per block component: f(x) = Σ f_i(x_i).
type Separable struct {
	terms []Functional
}

// NewSeparable creates a separable functional over block values.
func NewSeparable(terms ...Functional) *Separable {
	return &Separable{terms: terms}
}

// Capabilities returns the capabilities shared by all terms.
func (s *Separable) Capabilities() Capability {
	c := CanEval | CanGrad | CanProx
	for _, t := range s.terms {
		c &= t.Capabilities()
	}
	return c
}

func (s *Separable) split(x array.Value) (array.Block, error) {
	b, ok := x.(array.Block)
	if !ok || len(b) != len(s.terms) {
		return nil, errors.Wrapf(array.ErrShapeMismatch, "separable functional with %d terms applied to %s", len(s.terms), x)
	}
	return b, nil
}

// Eval returns Σ f_i(x_i).
func (s *Separable) Eval(x array.Value) (float64, error) {
	b, err := s.split(x)
	if err != nil {
		return 0, err
	}
	var total float64
	for i, t := range s.terms {
		v, err := Eval(t, b[i])
		if err != nil {
			return 0, errors.Wrapf(err, "block %d", i)
		}
		total += v
	}
	return total, nil
}

// Grad returns the block of component gradients.
func (s *Separable) Grad(x array.Value) (array.Value, error) {
	return s.each(x, func(t Functional, d *array.Dense) (array.Value, error) { return Grad(t, d) })
}

// Prox returns the block of component proxes.
func (s *Separable) Prox(v array.Value, step float64) (array.Value, error) {
	return s.each(v, func(t Functional, d *array.Dense) (array.Value, error) { return Prox(t, d, step) })
}

func (s *Separable) each(x array.Value, fn func(Functional, *array.Dense) (array.Value, error)) (array.Value, error) {
	b, err := s.split(x)
	if err != nil {
		return nil, err
	}
	parts := make([]*array.Dense, len(b))
	for i, t := range s.terms {
		r, err := fn(t, b[i])
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", i)
		}
		d, ok := r.(*array.Dense)
		if !ok {
			return nil, errors.Wrapf(array.ErrShapeMismatch, "block %d returned %s", i, r)
		}
		parts[i] = d
	}
	return array.NewBlock(parts...), nil
}

// DenoiseFunc maps a noisy value to a denoised value of the same structure.
type DenoiseFunc func(v array.Value) (array.Value, error)

// Denoiser is a plug-and-play prior: its "prox" is a denoiser, typically a
// learned model, and it has no evaluable value. The step is ignored.
type Denoiser struct {
	fn DenoiseFunc
}

// NewDenoiser wraps fn as a proximable prior.
func NewDenoiser(fn DenoiseFunc) *Denoiser {
	return &Denoiser{fn: fn}
}

// Capabilities returns prox.
func (d *Denoiser) Capabilities() Capability { return CanProx }

// Prox applies the denoiser to v.
func (d *Denoiser) Prox(v array.Value, _ float64) (array.Value, error) {
	out, err := d.fn(v)
	if err != nil {
		return nil, errors.Wrap(err, "denoiser")
	}
	if !array.SameStructure(v, out) {
		return nil, errors.Wrapf(array.ErrShapeMismatch, "denoiser returned %s for %s", out, v)
	}
	return out, nil
}
