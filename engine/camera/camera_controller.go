package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController defines a free-flying camera driven by keyboard and mouse input.
// Controllers own positional state (position, orientation). Input callbacks only record state;
// movement is applied in Update so that it scales with frame time.
//
// Controls:
//   - W/S move along the camera's forward axis, A/D along its right axis.
//   - Dragging with the left button turns around the world up axis and tilts around the local right axis.
//   - Dragging with the right button rolls around the local forward axis.
type CameraController interface {
	flyInput

	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// SetPosition sets the camera's world-space position directly.
	//
	// Parameters:
	//   - position: world-space coordinates
	SetPosition(position mgl32.Vec3)

	// Orientation returns the camera's rotation.
	//
	// Returns:
	//   - mgl32.Quat: the local-to-world rotation
	Orientation() mgl32.Quat

	// SetOrientation sets the camera's rotation. The quaternion is normalized.
	//
	// Parameters:
	//   - orientation: the local-to-world rotation
	SetOrientation(orientation mgl32.Quat)

	// LookAt turns the camera to face target with world up as the up hint.
	//
	// Parameters:
	//   - target: world-space point to face
	LookAt(target mgl32.Vec3)

	// Forward returns the camera's normalized forward axis in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the forward direction
	Forward() mgl32.Vec3

	// Right returns the camera's normalized right axis in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the right direction
	Right() mgl32.Vec3

	// Transform returns the camera-to-world matrix (translation times rotation).
	//
	// Returns:
	//   - mgl32.Mat4: the camera-to-world matrix
	Transform() mgl32.Mat4

	// Update applies held keys and pending drags accumulated since the previous call.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - bool: true if the position or orientation changed
	Update(dt float32) bool

	// MoveSpeed returns the translation speed in world units per second.
	//
	// Returns:
	//   - float32: the move speed
	MoveSpeed() float32

	// MouseSensitivity returns the rotation applied per pixel of mouse drag.
	//
	// Returns:
	//   - float32: degrees per pixel
	MouseSensitivity() float32
}

// flyInput receives raw window input.
type flyInput interface {
	// KeyDown records a key press.
	//
	// Parameters:
	//   - keyCode: the virtual key code
	KeyDown(keyCode uint32)

	// KeyUp records a key release.
	//
	// Parameters:
	//   - keyCode: the virtual key code
	KeyUp(keyCode uint32)

	// MouseButtonDown starts a drag for the given button at (x, y).
	//
	// Parameters:
	//   - button: the mouse button index
	//   - x, y: cursor position in pixels
	MouseButtonDown(button int, x, y float32)

	// MouseButtonUp ends a drag for the given button.
	//
	// Parameters:
	//   - button: the mouse button index
	MouseButtonUp(button int)

	// MouseMove records cursor movement. While a drag is active the movement is queued for Update.
	//
	// Parameters:
	//   - x, y: cursor position in pixels
	MouseMove(x, y float32)
}
