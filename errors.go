package feather2d

import "errors"

var (
	ErrSpaceLocked          = errors.New("feather2d: space is locked during a step or a query")
	ErrBodyInSpace          = errors.New("feather2d: body already added to a space")
	ErrBodyNotInSpace       = errors.New("feather2d: body not in this space")
	ErrShapeInSpace         = errors.New("feather2d: shape already added to a space")
	ErrShapeNotInSpace      = errors.New("feather2d: shape not in this space")
	ErrConstraintInSpace    = errors.New("feather2d: constraint already added to a space")
	ErrConstraintNotInSpace = errors.New("feather2d: constraint not in this space")
	ErrBodyHasConstraints   = errors.New("feather2d: body still has constraints in the space")
	ErrStaticSleep          = errors.New("feather2d: only dynamic bodies can sleep")
	ErrInvalidTimeStep      = errors.New("feather2d: time step must be finite and not negative")
	ErrInvalidParameter     = errors.New("feather2d: invalid parameter")
)
