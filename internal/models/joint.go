package models

import "time"

// Joint is a point in pixel space.
type Joint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Joints holds the three points that define one hip angle measurement.
type Joints struct {
	Shoulder Joint `json:"shoulder"`
	Hip      Joint `json:"hip"`
	Knee     Joint `json:"knee"`
}

// AngleSample is the measurement derived from one set of joints.
type AngleSample struct {
	Side       Side      `json:"side"`
	Angle      float64   `json:"angle"`
	AngleRange string    `json:"angle_range"`
	Time       time.Time `json:"time"`
	Logged     bool      `json:"logged"`
}
