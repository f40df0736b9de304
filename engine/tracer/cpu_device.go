package tracer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/engine/geometry"
	"github.com/Carmen-Shannon/oxy-trace/engine/kernel"
	"github.com/go-gl/mathgl/mgl32"
)

// Kernel computes one sample for the pixel at (x, y). kernel.TracePixel is the default.
type Kernel func(params *kernel.TraceParams, scene geometry.Scene, env kernel.Environment, x, y int) mgl32.Vec4

// PresentFunc receives the accumulation image each time a CPU device presents. The pixel slice
// is only valid for the duration of the call.
type PresentFunc func(pixels []mgl32.Vec4, width, height int)

// cpuImage is a row-major RGBA float image in host memory.
type cpuImage struct {
	releaseOnce
	width, height int
	pixels        []mgl32.Vec4
}

func (img *cpuImage) Width() int  { return img.width }
func (img *cpuImage) Height() int { return img.height }

func (img *cpuImage) Release() error {
	return img.release(func() { img.pixels = nil })
}

// cpuSceneBuffer is a private copy of a scene.
type cpuSceneBuffer struct {
	releaseOnce
	scene geometry.Scene
}

func (b *cpuSceneBuffer) Len() int { return len(b.scene) }

func (b *cpuSceneBuffer) Release() error {
	return b.release(func() { b.scene = nil })
}

// cpuDevice is the implementation of the CPUDevice interface.
type cpuDevice struct {
	mu *sync.Mutex

	pool    worker.DynamicWorkerPool
	workers int
	kernel  Kernel
	env     kernel.Environment
	present PresentFunc

	presented int
	released  releaseOnce
}

// CPUDevice runs the trace kernel on the host, one task per 8x8 tile on a worker pool.
// It renders the same image as the GPU kernel and backs headless rendering and tests.
type CPUDevice interface {
	Device

	// Snapshot copies the pixels of an image allocated by this device.
	//
	// Parameters:
	//   - img: the image to copy
	//
	// Returns:
	//   - []mgl32.Vec4: the row-major RGBA pixels
	//   - error: ErrReleased if the image or device was released
	Snapshot(img Image) ([]mgl32.Vec4, error)

	// Presented returns how many times Present has been called.
	//
	// Returns:
	//   - int: the present count
	Presented() int

	// Release stops the worker pool. Further calls return ErrReleased.
	//
	// Returns:
	//   - error: ErrReleased if already released
	Release() error
}

var _ CPUDevice = &cpuDevice{}

// NewCPUDevice creates a CPUDevice. Without options it uses one worker per CPU, kernel.TracePixel
// and a black sky.
//
// Parameters:
//   - opts: a variadic list of CPUDeviceBuilderOption functions
//
// Returns:
//   - CPUDevice: the new device
func NewCPUDevice(opts ...CPUDeviceBuilderOption) CPUDevice {
	d := &cpuDevice{
		mu:      &sync.Mutex{},
		workers: runtime.NumCPU(),
		kernel:  kernel.TracePixel,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, time.Second)
	return d
}

func (d *cpuDevice) NewImage(width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidViewport
	}
	if d.released.isReleased() {
		return nil, ErrReleased
	}
	return &cpuImage{
		width:  width,
		height: height,
		pixels: make([]mgl32.Vec4, width*height),
	}, nil
}

func (d *cpuDevice) NewSceneBuffer(scene geometry.Scene) (SceneBuffer, error) {
	if d.released.isReleased() {
		return nil, ErrReleased
	}
	return &cpuSceneBuffer{scene: append(geometry.Scene(nil), scene...)}, nil
}

func (d *cpuDevice) Trace(params kernel.TraceParams, scene SceneBuffer, target Image, groups [3]uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released.isReleased() {
		return ErrReleased
	}
	sb, err := d.sceneBuffer(scene)
	if err != nil {
		return err
	}
	img, err := d.image(target)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	id := 0
	for gy := range int(groups[1]) {
		for gx := range int(groups[0]) {
			x0, y0 := gx*kernel.WorkgroupSize, gy*kernel.WorkgroupSize
			if x0 >= img.width || y0 >= img.height {
				continue
			}
			wg.Add(1)
			d.pool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()
					d.traceTile(&params, sb.scene, img, x0, y0)
					return nil, nil
				},
			})
			id++
		}
	}
	wg.Wait()
	return nil
}

// traceTile fills one workgroup-sized tile. Tiles never overlap, so tasks write disjoint pixels.
func (d *cpuDevice) traceTile(params *kernel.TraceParams, scene geometry.Scene, img *cpuImage, x0, y0 int) {
	x1 := min(x0+kernel.WorkgroupSize, img.width)
	y1 := min(y0+kernel.WorkgroupSize, img.height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.pixels[y*img.width+x] = d.kernel(params, scene, d.env, x, y)
		}
	}
}

func (d *cpuDevice) Accumulate(frame, accum Image, weight float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released.isReleased() {
		return ErrReleased
	}
	src, err := d.image(frame)
	if err != nil {
		return err
	}
	dst, err := d.image(accum)
	if err != nil {
		return err
	}
	if src.width != dst.width || src.height != dst.height {
		return fmt.Errorf("cannot accumulate a %dx%d frame into a %dx%d image", src.width, src.height, dst.width, dst.height)
	}

	if weight >= 1 {
		copy(dst.pixels, src.pixels)
		return nil
	}
	for i, fresh := range src.pixels {
		dst.pixels[i] = dst.pixels[i].Mul(1 - weight).Add(fresh.Mul(weight))
	}
	return nil
}

func (d *cpuDevice) Present(accum Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released.isReleased() {
		return ErrReleased
	}
	img, err := d.image(accum)
	if err != nil {
		return err
	}
	d.presented++
	if d.present != nil {
		d.present(img.pixels, img.width, img.height)
	}
	return nil
}

func (d *cpuDevice) Snapshot(target Image) ([]mgl32.Vec4, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := d.image(target)
	if err != nil {
		return nil, err
	}
	return append([]mgl32.Vec4(nil), img.pixels...), nil
}

func (d *cpuDevice) Presented() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

func (d *cpuDevice) Release() error {
	return d.released.release(d.pool.Stop)
}

func (d *cpuDevice) image(img Image) (*cpuImage, error) {
	ci, ok := img.(*cpuImage)
	if !ok || ci == nil {
		return nil, errors.New("image was not allocated by a CPU device")
	}
	if ci.isReleased() {
		return nil, ErrReleased
	}
	return ci, nil
}

func (d *cpuDevice) sceneBuffer(buf SceneBuffer) (*cpuSceneBuffer, error) {
	sb, ok := buf.(*cpuSceneBuffer)
	if !ok || sb == nil {
		return nil, errors.New("scene buffer was not allocated by a CPU device")
	}
	if sb.isReleased() {
		return nil, ErrReleased
	}
	return sb, nil
}
