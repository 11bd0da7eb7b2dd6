// Package pose normalizes captured holistic pose frames into a fixed-length,
// body-relative landmark vector.
package pose

import (
	"math"
)

// Component names of a holistic frame.
const (
	PoseLandmarks      = "poseLandmarks"
	FaceLandmarks      = "faceLandmarks"
	LeftHandLandmarks  = "leftHandLandmarks"
	RightHandLandmarks = "rightHandLandmarks"
)

// HolisticComponents lists the components in their canonical order.
var HolisticComponents = []string{PoseLandmarks, FaceLandmarks, LeftHandLandmarks, RightHandLandmarks}

var componentSizes = map[string]int{
	PoseLandmarks:      33,
	FaceLandmarks:      468,
	LeftHandLandmarks:  21,
	RightHandLandmarks: 21,
}

const (
	leftShoulder  = 11
	rightShoulder = 12
)

// Landmark is one tracked point in image-normalized coordinates.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is a single captured holistic frame keyed by component name.
type Frame map[string][]Landmark

// Normalized is a frame projected onto the selected components.
type Normalized struct {
	Components []string   `json:"components"`
	Points     []Landmark `json:"points"`
	// Missing counts the landmarks that were absent and zero-filled.
	Missing int `json:"missing"`
}

// NormalizeHolistic projects frame onto components, centring on the shoulder
// midpoint and scaling by shoulder width. Without usable shoulders the
// bounding box of the present points is used instead. Absent landmarks are
// zero-filled so the output length depends only on components.
func NormalizeHolistic(frame Frame, components []string) Normalized {
	center, scale := reference(frame)
	out := Normalized{Components: append([]string(nil), components...)}
	for _, component := range components {
		size, known := componentSizes[component]
		points := frame[component]
		if !known {
			size = len(points)
		}
		for i := 0; i < size; i++ {
			if i >= len(points) {
				out.Points = append(out.Points, Landmark{})
				out.Missing++
				continue
			}
			p := points[i]
			out.Points = append(out.Points, Landmark{
				X: (p.X - center.X) / scale,
				Y: (p.Y - center.Y) / scale,
				Z: (p.Z - center.Z) / scale,
			})
		}
	}
	return out
}

func reference(frame Frame) (Landmark, float64) {
	body := frame[PoseLandmarks]
	if len(body) > rightShoulder {
		l, r := body[leftShoulder], body[rightShoulder]
		width := math.Hypot(l.X-r.X, l.Y-r.Y)
		if width > 1e-6 {
			return Landmark{X: (l.X + r.X) / 2, Y: (l.Y + r.Y) / 2, Z: (l.Z + r.Z) / 2}, width
		}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, points := range frame {
		for _, p := range points {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return Landmark{}, 1
	}
	scale := math.Max(maxX-minX, maxY-minY)
	if scale <= 1e-6 {
		scale = 1
	}
	return Landmark{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}, scale
}
