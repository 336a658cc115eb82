package optimize

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/checkpoint"
)

// Checkpoint returns a snapshot of the iterates and iteration count.
func (s *NonLinearPADMM) Checkpoint() *checkpoint.State {
	return &checkpoint.State{
		Solver:    s.name,
		Iteration: s.itnum,
		Params:    map[string]float64{"rho": s.rho, "mu": s.mu, "nu": s.nu},
		Values: map[string]array.Value{
			"x":      s.x,
			"z":      s.z,
			"u":      s.u,
			"h_prev": s.hxzPrev,
		},
	}
}

// Restore continues from st, which must come from a solver of the same
// kind and variable structure. Statistics recorded so far are kept.
func (s *NonLinearPADMM) Restore(st *checkpoint.State) (err error) {
	defer array.Recover(&err)
	if err := s.checkState(st); err != nil {
		return err
	}
	vals, err := stateValues(st, map[string]array.Value{"x": s.x, "z": s.z, "u": s.u, "h_prev": s.hxzPrev})
	if err != nil {
		return err
	}
	hxz, err := s.h.Eval(vals["x"], vals["z"])
	if err != nil {
		return errors.Wrap(err, "NonLinearPADMM: restore: H(x, z)")
	}
	s.x, s.z, s.u, s.hxzPrev = vals["x"], vals["z"], vals["u"], vals["h_prev"]
	s.hxz = hxz
	s.itnum = st.Iteration
	s.resetCache()
	s.warnParams(st, map[string]float64{"rho": s.rho, "mu": s.mu, "nu": s.nu})
	return nil
}

// Checkpoint returns a snapshot of the iterates and iteration count.
func (s *ADMM) Checkpoint() *checkpoint.State {
	st := &checkpoint.State{
		Solver:    s.name,
		Iteration: s.itnum,
		Params:    make(map[string]float64, len(s.rho)),
		Values:    map[string]array.Value{"x": s.x},
	}
	for i := range s.g {
		st.Params[fmt.Sprintf("rho.%d", i)] = s.rho[i]
		st.Values[fmt.Sprintf("z.%d", i)] = s.z[i]
		st.Values[fmt.Sprintf("u.%d", i)] = s.u[i]
		st.Values[fmt.Sprintf("z_prev.%d", i)] = s.zOld[i]
	}
	return st
}

// Restore continues from st, which must come from an ADMM solver with the
// same number of terms and variable structure.
func (s *ADMM) Restore(st *checkpoint.State) (err error) {
	defer array.Recover(&err)
	if err := s.checkState(st); err != nil {
		return err
	}
	like := map[string]array.Value{"x": s.x}
	params := make(map[string]float64, len(s.rho))
	for i := range s.g {
		like[fmt.Sprintf("z.%d", i)] = s.z[i]
		like[fmt.Sprintf("u.%d", i)] = s.u[i]
		like[fmt.Sprintf("z_prev.%d", i)] = s.zOld[i]
		params[fmt.Sprintf("rho.%d", i)] = s.rho[i]
	}
	vals, err := stateValues(st, like)
	if err != nil {
		return err
	}
	s.x = vals["x"]
	for i := range s.g {
		s.z[i] = vals[fmt.Sprintf("z.%d", i)]
		s.u[i] = vals[fmt.Sprintf("u.%d", i)]
		s.zOld[i] = vals[fmt.Sprintf("z_prev.%d", i)]
	}
	s.itnum = st.Iteration
	s.warnParams(st, params)
	return nil
}

func (it *iterative[S]) checkState(st *checkpoint.State) error {
	if st == nil {
		return configError("%s: nil checkpoint", it.name)
	}
	if st.Solver != it.name {
		return errors.Wrapf(checkpoint.ErrSolverMismatch, "%s: checkpoint is from %q", it.name, st.Solver)
	}
	if st.Iteration < 0 {
		return configError("%s: checkpoint iteration %d", it.name, st.Iteration)
	}
	return nil
}

// warnParams logs parameters that differ from the checkpoint's. The
// solver's own values are used.
func (it *iterative[S]) warnParams(st *checkpoint.State, current map[string]float64) {
	for k, v := range current {
		if saved, ok := st.Params[k]; ok && saved != v {
			it.log.WithFields(logrus.Fields{"param": k, "checkpoint": saved, "solver": v}).Warn("parameter differs from checkpoint")
		}
	}
	it.log.WithField("iter", st.Iteration).Debug("restored checkpoint")
}

// stateValues returns the values named in like, checked against and
// converted to their structure and dtype.
func stateValues(st *checkpoint.State, like map[string]array.Value) (map[string]array.Value, error) {
	out := make(map[string]array.Value, len(like))
	for name, l := range like {
		v, ok := st.Values[name]
		if !ok {
			return nil, configError("checkpoint has no value %q", name)
		}
		if err := array.CheckStructure("checkpoint "+name, v, l); err != nil {
			return nil, err
		}
		out[name] = array.Conform(array.Clone(v), l)
	}
	return out, nil
}
