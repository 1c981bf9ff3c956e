package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MomentForCircle is the moment of inertia of a hollow circle (r1 inner, r2 outer radius)
// whose center is offset from the center of gravity.
func MomentForCircle(m, r1, r2 float64, offset mgl64.Vec2) float64 {
	return m * (0.5*(r1*r1+r2*r2) + offset.LenSqr())
}

func AreaForCircle(r1, r2 float64) float64 {
	return math.Pi * math.Abs(r1*r1-r2*r2)
}

// MomentForSegment is the moment of inertia of a beveled segment of radius r.
func MomentForSegment(m float64, a, b mgl64.Vec2, r float64) float64 {
	offset := Lerp(a, b, 0.5)
	length := Dist(b, a) + 2.0*r
	return m * ((length*length)/12.0 + offset.LenSqr())
}

func AreaForSegment(a, b mgl64.Vec2, r float64) float64 {
	return r * (math.Pi*r + 2.0*Dist(a, b))
}

// MomentForPoly is the moment of inertia of a solid counter-clockwise polygon, its vertices translated by offset.
func MomentForPoly(m float64, verts []mgl64.Vec2, offset mgl64.Vec2, r float64) float64 {
	if len(verts) == 2 {
		return MomentForSegment(m, verts[0], verts[1], 0.0)
	}

	var sum1, sum2 float64
	for i := range verts {
		v1 := verts[i].Add(offset)
		v2 := verts[(i+1)%len(verts)].Add(offset)

		a := Cross(v2, v1)
		b := v1.Dot(v1) + v1.Dot(v2) + v2.Dot(v2)

		sum1 += a * b
		sum2 += a
	}

	return (m * sum1) / (6.0 * sum2)
}

// AreaForPoly is the signed area of a polygon, grown by the rounding radius r.
// A clockwise polygon yields a negative area.
func AreaForPoly(verts []mgl64.Vec2, r float64) float64 {
	var area, perimeter float64
	for i := range verts {
		v1 := verts[i]
		v2 := verts[(i+1)%len(verts)]

		area += Cross(v1, v2)
		perimeter += Dist(v1, v2)
	}

	return r*(math.Pi*math.Abs(r)+perimeter) + area/2.0
}

func CentroidForPoly(verts []mgl64.Vec2) mgl64.Vec2 {
	var sum float64
	var vsum mgl64.Vec2

	for i := range verts {
		v1 := verts[i]
		v2 := verts[(i+1)%len(verts)]
		cross := Cross(v1, v2)

		sum += cross
		vsum = vsum.Add(v1.Add(v2).Mul(cross))
	}

	return vsum.Mul(1.0 / (3.0 * sum))
}

func MomentForBox(m, width, height float64) float64 {
	return m * (width*width + height*height) / 12.0
}

// MomentForBox2 is MomentForBox for a box that is not centered on the center of gravity.
func MomentForBox2(m float64, box BB) float64 {
	width := box.R - box.L
	height := box.T - box.B
	offset := box.Center()

	return MomentForBox(m, width, height) + m*offset.LenSqr()
}
