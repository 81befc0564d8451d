package mesh

import "github.com/aukilabs/go-tooling/pkg/errors"

const (
	// ErrTypeInvalidFile is the type of errors returned when a mesh file is
	// malformed.
	ErrTypeInvalidFile = "mesh-invalid-file"

	// ErrTypeUnsupportedFormat is the type of errors returned when a mesh
	// file extension is not supported.
	ErrTypeUnsupportedFormat = "mesh-unsupported-format"

	ErrTypeInvalidTreeOptions = "mesh-invalid-tree-options"
)

func errUnsupportedFormat(path string) error {
	return errors.New("unsupported mesh format").
		WithType(ErrTypeUnsupportedFormat).
		WithTag("path", path)
}
