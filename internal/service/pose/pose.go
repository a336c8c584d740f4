// Package pose adapts landmark detections into per-side joints.
package pose

import (
	"errors"

	"posturemonitor/internal/models"
)

// ErrNoDetection is returned by detectors that found no person in a frame.
var ErrNoDetection = errors.New("no pose detected")

// Landmark is a normalized landmark; X and Y are in [0,1] of the frame size
// and Z is the relative depth, smaller meaning closer to the camera.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// BodySide holds the landmarks of one half of the body.
type BodySide struct {
	Shoulder Landmark `json:"shoulder"`
	Hip      Landmark `json:"hip"`
	Knee     Landmark `json:"knee"`
}

// Landmarks is one detection for a frame.
type Landmarks struct {
	Left  BodySide `json:"left"`
	Right BodySide `json:"right"`
}

// Detector finds the pose in an encoded frame.
type Detector interface {
	// Detect returns the landmarks in frame, or ErrNoDetection.
	Detect(frame []byte) (*Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// FacingSide returns the side turned towards the camera, the one whose
// shoulder is closer.
func FacingSide(l *Landmarks) models.Side {
	if l.Left.Shoulder.Z < l.Right.Shoulder.Z {
		return models.Left
	}
	return models.Right
}

// Side returns the landmarks of side.
func (l *Landmarks) Side(side models.Side) BodySide {
	if side == models.Left {
		return l.Left
	}
	return l.Right
}

// ToJoints converts the landmarks of one side to pixel coordinates, truncating
// towards zero.
func ToJoints(b BodySide, width, height int) models.Joints {
	px := func(l Landmark) models.Joint {
		return models.Joint{X: int(l.X * float64(width)), Y: int(l.Y * float64(height))}
	}
	return models.Joints{
		Shoulder: px(b.Shoulder),
		Hip:      px(b.Hip),
		Knee:     px(b.Knee),
	}
}

// Track picks the facing side of l and returns its joints in pixels.
func Track(l *Landmarks, width, height int) (models.Side, models.Joints) {
	side := FacingSide(l)
	return side, ToJoints(l.Side(side), width, height)
}
