package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithPosition sets the initial world-space position.
//
// Parameters:
//   - x: X coordinate of the camera
//   - y: Y coordinate of the camera
//   - z: Z coordinate of the camera
//
// Returns:
//   - CameraControllerOption: functional option to set the position
func WithPosition(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget turns the camera to face the given point once all options are applied.
//
// Parameters:
//   - x: X coordinate of the target
//   - y: Y coordinate of the target
//   - z: Z coordinate of the target
//
// Returns:
//   - CameraControllerOption: functional option to set the look-at target
func WithTarget(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		target := mgl32.Vec3{x, y, z}
		cc.target = &target
	}
}

// WithOrientation sets the initial rotation.
//
// Parameters:
//   - orientation: the local-to-world rotation
//
// Returns:
//   - CameraControllerOption: functional option to set the orientation
func WithOrientation(orientation mgl32.Quat) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orientation = orientation.Normalize()
	}
}

// WithMoveSpeed sets the WASD translation speed.
//
// Parameters:
//   - speed: world units per second
//
// Returns:
//   - CameraControllerOption: functional option to set move speed
func WithMoveSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.moveSpeed = speed
	}
}

// WithMouseSensitivity sets the mouse drag sensitivity.
//
// Parameters:
//   - sensitivity: degrees of rotation per pixel dragged
//
// Returns:
//   - CameraControllerOption: functional option to set mouse sensitivity
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}
