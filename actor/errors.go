package actor

import "errors"

var (
	ErrInvalidMass       = errors.New("actor: mass must be positive and finite")
	ErrInvalidMoment     = errors.New("actor: moment must be positive and finite")
	ErrDegeneratePolygon = errors.New("actor: polygon must be convex with a positive area")
	ErrInvalidGeometry   = errors.New("actor: geometry must be finite")
	ErrNotInSpace        = errors.New("actor: body is not in a space")
)
