// Package capture drives the pose pipeline from a stream of frames.
package capture

import (
	"context"
	"errors"
	"time"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
	"posturemonitor/internal/service/pose"
)

// ErrClosed is returned by a FrameSource that has no more frames.
var ErrClosed = errors.New("frame source closed")

// Frame is one JPEG encoded frame.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// FrameSource produces frames, for example a camera. Close may be called
// more than once and while a Read is in progress; Read then returns ErrClosed.
type FrameSource interface {
	Read() (Frame, error)
	Close() error
}

// FrameHandler consumes the detection made for each frame.
type FrameHandler interface {
	OnFrame(landmarks *pose.Landmarks, width, height int, frame []byte) (*models.AngleSample, error)
}

const (
	defaultRetryDelay = 500 * time.Millisecond
	maxReadFailures   = 20
)

// Loop reads frames, detects the pose in each one and hands the result on.
type Loop struct {
	source     FrameSource
	detector   pose.Detector
	handler    FrameHandler
	logger     *logger.Logger
	retryDelay time.Duration
	onSample   func(*models.AngleSample)
}

// NewLoop wires a loop. onSample, if not nil, sees every computed sample.
func NewLoop(source FrameSource, detector pose.Detector, handler FrameHandler, logger *logger.Logger, onSample func(*models.AngleSample)) *Loop {
	return &Loop{
		source:     source,
		detector:   detector,
		handler:    handler,
		logger:     logger,
		retryDelay: defaultRetryDelay,
		onSample:   onSample,
	}
}

// Run processes frames until ctx is done, the source is closed or reads keep
// failing. The source and the detector are closed on return.
func (l *Loop) Run(ctx context.Context) error {
	defer l.detector.Close()
	defer l.source.Close()
	stop := context.AfterFunc(ctx, func() { l.source.Close() })
	defer stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := l.source.Read()
		if errors.Is(err, ErrClosed) {
			if ctx.Err() == nil {
				l.logger.Info("Frame source closed")
			}
			return nil
		}
		if err != nil {
			failures++
			if failures >= maxReadFailures {
				return err
			}
			l.logger.Warning("Failed to read frame: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.retryDelay):
			}
			continue
		}
		failures = 0

		l.process(frame)
	}
}

func (l *Loop) process(frame Frame) {
	landmarks, err := l.detector.Detect(frame.Data)
	if errors.Is(err, pose.ErrNoDetection) {
		return
	}
	if err != nil {
		l.logger.Warning("Pose detection failed: %v", err)
		return
	}

	sample, err := l.handler.OnFrame(landmarks, frame.Width, frame.Height, frame.Data)
	if err != nil {
		l.logger.Error("Failed to log sample: %v", err)
	}
	if sample != nil && l.onSample != nil {
		l.onSample(sample)
	}
}
