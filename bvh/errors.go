package bvh

import "github.com/aukilabs/go-tooling/pkg/errors"

const (
	// ErrTypeIndexOutOfRange is the type of errors returned when a leaf index
	// does not refer to an inserted leaf.
	ErrTypeIndexOutOfRange = "bvh-index-out-of-range"

	// ErrTypeDifferentNumPoints is the type of errors returned when a moving
	// point set does not match the size of its point set.
	ErrTypeDifferentNumPoints = "bvh-different-num-points"
)

func errIndexOutOfRange(index, totleaf int) error {
	return errors.New("index given is out of range").
		WithType(ErrTypeIndexOutOfRange).
		WithTag("index", index).
		WithTag("leaf_count", totleaf)
}

func errDifferentNumPoints(points, moving int) error {
	return errors.New("different number of points given").
		WithType(ErrTypeDifferentNumPoints).
		WithTag("points", points).
		WithTag("moving_points", moving)
}
