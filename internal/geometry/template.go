package geometry

import "math"

// ConeStyle selects how a cone's far edge is drawn.
type ConeStyle string

const (
	// ConeRound approximates the far edge with an arc, one ray every 3 degrees.
	ConeRound ConeStyle = "round"
	// ConeFlat closes the cone with a straight edge at the given distance.
	// Cones of 180 degrees or wider are drawn round.
	ConeFlat ConeStyle = "flat"
)

const coneArcStep = 3.0

// ConeShape returns the cone template as alternating x/y offsets from the
// origin. The polygon starts and ends at the origin. distance is in pixels;
// direction and angle are in degrees.
func ConeShape(distance, direction, angle float64, style ConeStyle) []float64 {
	var angles []float64
	switch {
	case angle <= 0:
		angles = []float64{0}
	case style == ConeFlat && angle < 180:
		angles = []float64{-angle / 2, angle / 2}
		distance /= math.Cos(angle / 2 * math.Pi / 180)
	default:
		da := math.Min(angle, coneArcStep)
		steps := int(math.Floor(angle / da))
		angles = make([]float64, 0, steps+1)
		for i := 0; i < steps; i++ {
			angles = append(angles, -angle/2+float64(i)*da)
		}
		angles = append(angles, angle/2)
	}

	points := make([]float64, 0, 2*len(angles)+4)
	points = append(points, 0, 0)
	for _, a := range angles {
		x, y := fromAngle(0, 0, direction+a, distance)
		points = append(points, x, y)
	}
	return append(points, 0, 0)
}

// RayShape returns the ray template as alternating x/y offsets from the
// origin: a rectangle of the given width extending distance pixels along
// direction, centered on the origin across its width.
func RayShape(distance, direction, width float64) []float64 {
	upX, upY := fromAngle(0, 0, direction-90, width/2)
	downX, downY := fromAngle(0, 0, direction+90, width/2)
	l1X, l1Y := fromAngle(upX, upY, direction, distance)
	l2X, l2Y := fromAngle(downX, downY, direction, distance)

	return []float64{
		downX, downY,
		upX, upY,
		l1X, l1Y,
		l2X, l2Y,
		downX, downY,
	}
}
