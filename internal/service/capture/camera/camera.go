// Package camera reads JPEG frames from a local video device.
package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"posturemonitor/internal/service/capture"
)

// Camera is a capture.FrameSource backed by an OpenCV video capture.
type Camera struct {
	index   int
	capture *gocv.VideoCapture
	mat     gocv.Mat
	mutex   sync.Mutex
	closed  bool
}

// Open opens the video device with the given index.
func Open(index int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", index)
	}
	return &Camera{index: index, capture: vc, mat: gocv.NewMat()}, nil
}

// Read grabs the next frame and encodes it as JPEG.
func (c *Camera) Read() (capture.Frame, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return capture.Frame{}, capture.ErrClosed
	}
	if ok := c.capture.Read(&c.mat); !ok {
		return capture.Frame{}, capture.ErrClosed
	}
	if c.mat.Empty() {
		return capture.Frame{}, fmt.Errorf("camera %d returned an empty frame", c.index)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.mat)
	if err != nil {
		return capture.Frame{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return capture.Frame{Data: data, Width: c.mat.Cols(), Height: c.mat.Rows()}, nil
}

// Close releases the device. It waits for a Read in progress.
func (c *Camera) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.mat.Close(); err != nil {
		return err
	}
	return c.capture.Close()
}
