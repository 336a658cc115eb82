package optimize

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/linop"
)

// MatrixSubproblemSolver solves quadratic subproblems directly. Setup
// materializes every operator, forms the normal matrix
//
//	M = 2s AᴴA + Σ w_i C_iᴴC_i
//
// and factors it once by Cholesky; each Solve is then two triangular solves.
// Complex systems are solved through the real embedding
//
//	[Re M  −Im M] [Re x]   [Re b]
//	[Im M   Re M] [Im x] = [Im b]
//
// It suits problems with at most a few thousand unknowns.
type MatrixSubproblemSolver struct {
	eq      normalEquations
	chol    mat.Cholesky
	n       int
	complex bool
}

// Setup materializes the operators and factors the normal matrix.
func (s *MatrixSubproblemSolver) Setup(p *Subproblem) error {
	if err := checkPenalties(p); err != nil {
		return err
	}
	ls, err := leastSquaresOf(p.F)
	if err != nil {
		return err
	}
	s.eq = normalEquations{ls: ls}

	type weighted struct {
		w float64
		m *linop.Materialized
	}
	var terms []weighted
	if ls != nil {
		if !ls.Operator().InputSpace().SameStructure(p.Space) {
			return configError("direct: loss domain %s, x is %s", ls.Operator().InputSpace(), p.Space)
		}
		m, err := linop.Materialize(ls.Operator())
		if err != nil {
			return errors.Wrap(err, "direct: materialize loss operator")
		}
		terms = append(terms, weighted{2 * ls.Scale(), m})
	}
	for i, t := range p.Penalties {
		m, err := linop.Materialize(t.Op)
		if err != nil {
			return errors.Wrapf(err, "direct: materialize penalty %d", i)
		}
		terms = append(terms, weighted{t.Weight, m})
	}

	n := p.Space.Size()
	s.n = n
	s.complex = p.Space.DType.IsComplex()
	gr := mat.NewDense(n, n, nil)
	gi := mat.NewDense(n, n, nil)
	for _, t := range terms {
		s.complex = s.complex || t.m.Complex
		accumulate(gr, t.w, t.m.Re.T(), t.m.Re)
		accumulate(gr, t.w, t.m.Im.T(), t.m.Im)
		accumulate(gi, t.w, t.m.Re.T(), t.m.Im)
		accumulate(gi, -t.w, t.m.Im.T(), t.m.Re)
	}

	var sym *mat.SymDense
	if s.complex {
		sym = mat.NewSymDense(2*n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sym.SetSym(i, j, gr.At(i, j))
				sym.SetSym(n+i, n+j, gr.At(i, j))
			}
			for j := 0; j < n; j++ {
				sym.SetSym(i, n+j, -gi.At(i, j))
			}
		}
	} else {
		sym = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sym.SetSym(i, j, gr.At(i, j))
			}
		}
	}
	if ok := s.chol.Factorize(sym); !ok {
		return errors.Wrap(ErrMissingCapability, "direct: normal matrix is not positive definite")
	}
	return nil
}

// accumulate adds w·a·b to dst.
func accumulate(dst *mat.Dense, w float64, a, b mat.Matrix) {
	var t mat.Dense
	t.Mul(a, b)
	t.Scale(w, &t)
	dst.Add(dst, &t)
}

// Solve returns M⁻¹ b; x0 is not needed.
func (s *MatrixSubproblemSolver) Solve(p *Subproblem, _ array.Value) (x array.Value, err error) {
	defer array.Recover(&err)
	s.eq.penalties = p.Penalties

	b, err := s.eq.rhs(p.Space)
	if err != nil {
		return nil, err
	}
	flat := array.Flatten(b)
	size := s.n
	if s.complex {
		size = 2 * s.n
	}
	rhs := mat.NewVecDense(size, nil)
	for i, v := range flat {
		rhs.SetVec(i, real(v))
		if s.complex {
			rhs.SetVec(s.n+i, imag(v))
		}
	}

	var sol mat.VecDense
	if err := s.chol.SolveVecTo(&sol, rhs); err != nil {
		return nil, errors.Wrap(err, "direct: solve")
	}
	out := make([]complex128, s.n)
	for i := range out {
		if s.complex {
			out[i] = complex(sol.AtVec(i), sol.AtVec(s.n+i))
		} else {
			out[i] = complex(sol.AtVec(i), 0)
		}
	}
	return array.Unflatten(b, out)
}
