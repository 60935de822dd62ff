package domain

import "errors"

// Sentinel errors for the failure categories callers branch on. Wrap with
// fmt.Errorf("%w: ...") so errors.Is keeps matching through added detail.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidGeofence = errors.New("invalid geofence")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrFenceNotFound   = errors.New("geofence not found")
	ErrStopped         = errors.New("position processor stopped")
)
