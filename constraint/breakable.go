package constraint

// Breakable makes c remove itself from its space once the force it applies reaches
// ratio*MaxForce. The check runs after the solver, and the removal once the step is over.
// A PostSolve hook already set on c keeps running.
func Breakable[C Constraint](c C, ratio float64) C {
	base := c.Base()
	next := base.PostSolve

	base.PostSolve = func(constraint Constraint, space Space) {
		if next != nil {
			next(constraint, space)
		}

		dt := space.CurrentTimeStep()
		if dt <= 0 {
			return
		}

		if constraint.Impulse()/dt >= ratio*constraint.Base().MaxForce {
			space.AddPostStepCallback(constraint, func() {
				// already removed by another callback
				if constraint.Base().Space() == nil {
					return
				}
				_ = space.RemoveConstraint(constraint)
			})
		}
	}

	return c
}
