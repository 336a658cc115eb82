package optimize

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/linop"
)

// Coupling is the constraint function H in H(x, z) = 0.
type Coupling interface {
	Eval(x, z array.Value) (array.Value, error)
}

// CouplingFunc adapts a plain function to Coupling. Its vector-Jacobian
// products are computed by central differences, which costs two
// evaluations per real unknown (four per complex one) for each product.
type CouplingFunc func(x, z array.Value) (array.Value, error)

// Eval calls f(x, z).
func (f CouplingFunc) Eval(x, z array.Value) (array.Value, error) { return f(x, z) }

// CouplingVJP is a Coupling that provides its own vector-Jacobian products
//
//	VJPX(x, z, r) = J_x H(x, z)ᴴ r
//	VJPZ(x, z, r) = J_z H(x, z)ᴴ r
type CouplingVJP interface {
	Coupling
	VJPX(x, z, r array.Value) (array.Value, error)
	VJPZ(x, z, r array.Value) (array.Value, error)
}

// AffineCoupling is H(x, z) = A x + B z − c. C may be nil.
type AffineCoupling struct {
	A, B linop.Linear
	C    array.Value
}

// NewAffineCoupling checks that A and B map into the same space, and that c
// (if given) lies in it.
func NewAffineCoupling(a, b linop.Linear, c array.Value) (*AffineCoupling, error) {
	if a == nil || b == nil {
		return nil, configError("affine coupling: nil operator")
	}
	out := a.OutputSpace()
	if !out.SameStructure(b.OutputSpace()) {
		return nil, errors.Wrapf(ErrShapeMismatch, "affine coupling: A maps to %s, B maps to %s", out, b.OutputSpace())
	}
	if c != nil && !out.Contains(c) {
		return nil, errors.Wrapf(ErrShapeMismatch, "affine coupling: c is %s, want %s", c, out)
	}
	return &AffineCoupling{A: a, B: b, C: c}, nil
}

// Eval returns A x + B z − c.
func (h *AffineCoupling) Eval(x, z array.Value) (out array.Value, err error) {
	defer array.Recover(&err)
	ax, err := h.A.Apply(x)
	if err != nil {
		return nil, err
	}
	bz, err := h.B.Apply(z)
	if err != nil {
		return nil, err
	}
	out = array.Add(ax, bz)
	if h.C != nil {
		out = array.Sub(out, h.C)
	}
	return out, nil
}

// VJPX returns Aᴴ r.
func (h *AffineCoupling) VJPX(_, _, r array.Value) (array.Value, error) { return h.A.Adjoint(r) }

// VJPZ returns Bᴴ r.
func (h *AffineCoupling) VJPZ(_, _, r array.Value) (array.Value, error) { return h.B.Adjoint(r) }

// vjpX returns J_x H(x, z)ᴴ r.
func vjpX(h Coupling, x, z, r array.Value) (array.Value, error) {
	out, err := vjpXs(h, x, z, r)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// vjpXs returns J_x H(x, z)ᴴ r for every r. Without a CouplingVJP all
// products share one finite-difference sweep.
func vjpXs(h Coupling, x, z array.Value, rs ...array.Value) ([]array.Value, error) {
	if v, ok := h.(CouplingVJP); ok {
		out := make([]array.Value, len(rs))
		for i, r := range rs {
			p, err := v.VJPX(x, z, r)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return numericVJP(func(p array.Value) (array.Value, error) { return h.Eval(p, z) }, x, rs...)
}

// vjpZ returns J_z H(x, z)ᴴ r.
func vjpZ(h Coupling, x, z, r array.Value) (array.Value, error) {
	if v, ok := h.(CouplingVJP); ok {
		return v.VJPZ(x, z, r)
	}
	out, err := numericVJP(func(p array.Value) (array.Value, error) { return h.Eval(x, p) }, z, r)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// fdStep is the relative central-difference step, about the cube root of
// float64 machine epsilon.
const fdStep = 6e-6

// numericVJP approximates J(at)ᴴ r for fn and each r by central
// differences. The perturbed points are built in double precision so that
// single-precision iterates do not swamp the step.
//
// With the conjugate-variable convention, component j of the product is
//
//	Re⟨r, ∂fn/∂Re x_j⟩ + i·Re⟨r, ∂fn/∂Im x_j⟩
//
// and the imaginary direction is perturbed only for complex inputs.
func numericVJP(fn func(array.Value) (array.Value, error), at array.Value, rs ...array.Value) (out []array.Value, err error) {
	defer array.Recover(&err)

	wide := array.AsDouble(at)
	base := array.Flatten(wide)
	directions := []complex128{1}
	if at.DType().IsComplex() {
		directions = append(directions, 1i)
	}

	grads := make([][]complex128, len(rs))
	for i := range grads {
		grads[i] = make([]complex128, len(base))
	}
	point := make([]complex128, len(base))
	copy(point, base)
	for j, xj := range base {
		h := fdStep * math.Max(1, cmplx.Abs(xj))
		for _, dir := range directions {
			point[j] = xj + complex(h, 0)*dir
			plus, err := evalFlat(fn, wide, point)
			if err != nil {
				return nil, err
			}
			point[j] = xj - complex(h, 0)*dir
			minus, err := evalFlat(fn, wide, point)
			if err != nil {
				return nil, err
			}
			point[j] = xj

			diff := array.Sub(plus, minus)
			for i, r := range rs {
				d := real(array.Vdot(r, diff)) / (2 * h)
				grads[i][j] += complex(d, 0) * dir
			}
		}
	}

	out = make([]array.Value, len(rs))
	for i, g := range grads {
		if out[i], err = array.Unflatten(wide, g); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func evalFlat(fn func(array.Value) (array.Value, error), like array.Value, data []complex128) (array.Value, error) {
	p, err := array.Unflatten(like, data)
	if err != nil {
		return nil, err
	}
	return fn(p)
}
