package camera

import "errors"

// Domain errors for the camera package.
var (
	// ErrNotFound is returned when a camera ID does not exist.
	ErrNotFound = errors.New("camera: not found")

	// ErrExists is returned when creating a camera with an ID that already exists.
	ErrExists = errors.New("camera: already exists")

	// ErrInvalidCamera is returned when camera validation fails.
	ErrInvalidCamera = errors.New("camera: invalid")
)
