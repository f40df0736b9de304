package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// cameraControllerImpl is the single implementation of CameraController.
// The camera looks down its local -Z axis with +Y up, matching mgl32.Perspective.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position    mgl32.Vec3
	orientation mgl32.Quat
	target      *mgl32.Vec3

	moveSpeed        float32
	mouseSensitivity float32

	keys map[uint32]bool

	turning bool
	rolling bool
	cursor  mgl32.Vec2

	// Drag distance in pixels queued since the last Update.
	pendingTurn mgl32.Vec2
	pendingRoll float32
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new fly controller at the origin looking down -Z, moving at
// 10 units per second and turning 0.15 degrees per dragged pixel.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:               &sync.Mutex{},
		orientation:      mgl32.QuatIdent(),
		moveSpeed:        10.0,
		mouseSensitivity: 0.15,
		keys:             make(map[uint32]bool),
	}

	for _, option := range options {
		option(cc)
	}

	if cc.target != nil {
		cc.lookAt(*cc.target)
		cc.target = nil
	}
	return cc
}

// lookAt builds the orientation whose -Z axis points at target.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) lookAt(target mgl32.Vec3) {
	dir := target.Sub(cc.position)
	if dir.Len() < 1e-6 {
		return
	}
	forward := dir.Normalize()
	right := forward.Cross(worldUp)
	if right.Len() < 1e-6 {
		return
	}
	right = right.Normalize()
	up := right.Cross(forward)

	rot := mgl32.Mat4FromCols(right.Vec4(0), up.Vec4(0), forward.Mul(-1).Vec4(0), mgl32.Vec4{0, 0, 0, 1})
	cc.orientation = mgl32.Mat4ToQuat(rot).Normalize()
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) SetPosition(position mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = position
}

func (cc *cameraControllerImpl) Orientation() mgl32.Quat {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orientation
}

func (cc *cameraControllerImpl) SetOrientation(orientation mgl32.Quat) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orientation = orientation.Normalize()
}

func (cc *cameraControllerImpl) LookAt(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.lookAt(target)
}

func (cc *cameraControllerImpl) Forward() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orientation.Rotate(mgl32.Vec3{0, 0, -1})
}

func (cc *cameraControllerImpl) Right() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orientation.Rotate(mgl32.Vec3{1, 0, 0})
}

func (cc *cameraControllerImpl) Transform() mgl32.Mat4 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return mgl32.Translate3D(cc.position.X(), cc.position.Y(), cc.position.Z()).Mul4(cc.orientation.Mat4())
}

func (cc *cameraControllerImpl) Update(dt float32) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	changed := false

	var move mgl32.Vec3
	forward := cc.orientation.Rotate(mgl32.Vec3{0, 0, -1})
	right := cc.orientation.Rotate(mgl32.Vec3{1, 0, 0})
	if cc.keys[common.KeyW] {
		move = move.Add(forward)
	}
	if cc.keys[common.KeyS] {
		move = move.Sub(forward)
	}
	if cc.keys[common.KeyD] {
		move = move.Add(right)
	}
	if cc.keys[common.KeyA] {
		move = move.Sub(right)
	}
	if move != (mgl32.Vec3{}) {
		cc.position = cc.position.Add(move.Mul(cc.moveSpeed * dt))
		changed = true
	}

	if cc.pendingTurn != (mgl32.Vec2{}) {
		yaw := mgl32.DegToRad(-cc.pendingTurn.X() * cc.mouseSensitivity)
		pitch := mgl32.DegToRad(-cc.pendingTurn.Y() * cc.mouseSensitivity)
		// Yaw is applied in world space and pitch in local space so the horizon stays level.
		cc.orientation = mgl32.QuatRotate(yaw, worldUp).Mul(cc.orientation).Mul(mgl32.QuatRotate(pitch, mgl32.Vec3{1, 0, 0}))
		cc.pendingTurn = mgl32.Vec2{}
		changed = true
	}
	if cc.pendingRoll != 0 {
		roll := mgl32.DegToRad(-cc.pendingRoll * cc.mouseSensitivity)
		cc.orientation = cc.orientation.Mul(mgl32.QuatRotate(roll, mgl32.Vec3{0, 0, -1}))
		cc.pendingRoll = 0
		changed = true
	}
	if changed {
		cc.orientation = cc.orientation.Normalize()
	}
	return changed
}

func (cc *cameraControllerImpl) MoveSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.moveSpeed
}

func (cc *cameraControllerImpl) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}

// --- flyInput implementation ---

func (cc *cameraControllerImpl) KeyDown(keyCode uint32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.keys[keyCode] = true
}

func (cc *cameraControllerImpl) KeyUp(keyCode uint32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.keys, keyCode)
}

func (cc *cameraControllerImpl) MouseButtonDown(button int, x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	switch button {
	case common.MouseButtonLeft:
		cc.turning = true
	case common.MouseButtonRight:
		cc.rolling = true
	default:
		return
	}
	cc.cursor = mgl32.Vec2{x, y}
}

func (cc *cameraControllerImpl) MouseButtonUp(button int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	switch button {
	case common.MouseButtonLeft:
		cc.turning = false
	case common.MouseButtonRight:
		cc.rolling = false
	}
}

func (cc *cameraControllerImpl) MouseMove(x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	pos := mgl32.Vec2{x, y}
	delta := pos.Sub(cc.cursor)
	cc.cursor = pos
	if cc.turning {
		cc.pendingTurn = cc.pendingTurn.Add(delta)
	}
	if cc.rolling {
		cc.pendingRoll += delta.X()
	}
}
