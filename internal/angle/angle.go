// Package angle measures joint angles and sorts them into 10-degree ranges.
package angle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"posturemonitor/internal/models"
)

// RangeWidth is the width in degrees of one angle range.
const RangeWidth = 10

// FindAngle returns the interior angle at vertex p2 formed with p1 and p3, in
// degrees within [0, 180]. Coincident points yield 0.
//
// The result is rounded to 9 decimal places. A plain atan2 formula can land
// just below a range boundary (89.99999999999999 for a right angle) and be
// truncated into the lower range; the rounding keeps it at 90. This
// intentionally departs from bucketing the raw float.
func FindAngle(p1, p2, p3 models.Joint) float64 {
	a := math.Atan2(float64(p3.Y-p2.Y), float64(p3.X-p2.X))
	b := math.Atan2(float64(p1.Y-p2.Y), float64(p1.X-p2.X))

	deg := math.Abs((a - b) * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	if math.IsNaN(deg) || deg < 0 {
		return 0
	}
	return math.Round(deg*1e9) / 1e9
}

// HipAngle measures the shoulder-hip-knee angle.
func HipAngle(j models.Joints) float64 {
	return FindAngle(j.Shoulder, j.Hip, j.Knee)
}

// Bucket returns the range label "start-end" for angle, where start is the
// angle truncated down to a multiple of RangeWidth. 180 maps to "180-190".
func Bucket(angle float64) string {
	start := RangeStart(angle)
	return fmt.Sprintf("%d-%d", start, start+RangeWidth)
}

// RangeStart returns the lower bound of the range angle falls into.
func RangeStart(angle float64) int {
	return int(angle) / RangeWidth * RangeWidth
}

// ParseBucket splits a range label produced by Bucket.
func ParseBucket(label string) (start, end int, err error) {
	lo, hi, ok := strings.Cut(label, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid angle range %q", label)
	}
	if start, err = strconv.Atoi(lo); err != nil {
		return 0, 0, fmt.Errorf("invalid angle range %q: %w", label, err)
	}
	if end, err = strconv.Atoi(hi); err != nil {
		return 0, 0, fmt.Errorf("invalid angle range %q: %w", label, err)
	}
	if end-start != RangeWidth {
		return 0, 0, fmt.Errorf("invalid angle range %q: width %d", label, end-start)
	}
	return start, end, nil
}
