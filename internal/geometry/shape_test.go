package geometry

import (
	"errors"
	"math"
	"testing"
)

func testGrid() Grid {
	return Grid{Size: 100, Distance: 1, ConeStyle: ConeRound}
}

func TestBuildRegionContainsCenterAndExcludesFarPoint(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
	}{
		{"circle", Shape{Kind: KindCircle, X: 10, Y: 20, Distance: 2}},
		{"rect", Shape{Kind: KindRectangle, X: 10, Y: 20, Width: 100, Height: 50}},
		{"cone", Shape{Kind: KindCone, X: 10, Y: 20, Distance: 2, Angle: 53.13, Direction: 45}},
		{"flat cone", Shape{Kind: KindCone, X: 10, Y: 20, Distance: 2, Angle: 90, Direction: 180}},
		{"ray", Shape{Kind: KindRay, X: 10, Y: 20, Distance: 2, Width: 1, Direction: 90}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := testGrid()
			if tt.name == "flat cone" {
				grid.ConeStyle = ConeFlat
			}

			region, err := BuildRegion(tt.shape, grid)
			if err != nil {
				t.Fatalf("BuildRegion: %v", err)
			}

			c := region.Center()
			if !ContainsPoint(region, c.X, c.Y) {
				t.Fatalf("center (%v, %v) not contained", c.X, c.Y)
			}

			b := region.Bounds()
			farX := b.X + b.Width + 1000
			farY := b.Y + b.Height + 1000
			if ContainsPoint(region, farX, farY) {
				t.Fatalf("far point (%v, %v) contained", farX, farY)
			}
		})
	}
}

func TestCircleScenario(t *testing.T) {
	region, err := BuildRegion(Shape{Kind: KindCircle, Distance: 2}, Grid{Size: 100, Distance: 1})
	if err != nil {
		t.Fatalf("BuildRegion: %v", err)
	}

	circle, ok := region.(Circle)
	if !ok {
		t.Fatalf("region = %T, want Circle", region)
	}
	if circle.Radius != 200 {
		t.Fatalf("radius = %v, want 200", circle.Radius)
	}
	if !ContainsPoint(region, 150, 0) {
		t.Fatal("expected (150,0) to be contained")
	}
	if ContainsPoint(region, 250, 0) {
		t.Fatal("expected (250,0) to be excluded")
	}
}

func TestRectangleScenario(t *testing.T) {
	region, err := BuildRegion(Shape{Kind: KindRectangle, Width: 100, Height: 50}, testGrid())
	if err != nil {
		t.Fatalf("BuildRegion: %v", err)
	}
	if !ContainsPoint(region, 50, 25) {
		t.Fatal("expected (50,25) to be contained")
	}
	if ContainsPoint(region, 150, 25) {
		t.Fatal("expected (150,25) to be excluded")
	}
}

func TestRectangleNegativeSize(t *testing.T) {
	r := Rect{X: 100, Y: 100, Width: -50, Height: -20}
	if !r.Contains(75, 90) {
		t.Fatal("expected point inside flipped rect")
	}
	if got := r.Bounds(); got != (Rect{X: 50, Y: 80, Width: 50, Height: 20}) {
		t.Fatalf("bounds = %+v", got)
	}
}

func TestBuildRegionUnsupportedKind(t *testing.T) {
	_, err := BuildRegion(Shape{Kind: "hexagon"}, testGrid())
	if !errors.Is(err, ErrUnsupportedShapeKind) {
		t.Fatalf("err = %v, want ErrUnsupportedShapeKind", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"circle", KindCircle, false},
		{"RECT", KindRectangle, false},
		{"rectangle", KindRectangle, false},
		{" cone ", KindCone, false},
		{"ray", KindRay, false},
		{"hexagon", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseKind(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContainmentIsStable(t *testing.T) {
	shape := Shape{Kind: KindCone, X: 0, Y: 0, Distance: 2, Angle: 60, Direction: 0}
	// Just inside the far arc along the cone axis.
	x, y := 199.999, 0.0

	first := false
	for i := 0; i < 50; i++ {
		region, err := BuildRegion(shape, testGrid())
		if err != nil {
			t.Fatalf("BuildRegion: %v", err)
		}
		got := ContainsPoint(region, x, y)
		if i == 0 {
			first = got
			continue
		}
		if got != first {
			t.Fatalf("iteration %d: contains = %v, first = %v", i, got, first)
		}
	}
	if !first {
		t.Fatal("expected boundary-adjacent point to be contained")
	}
}

func TestConeContainsOrigin(t *testing.T) {
	region, err := BuildRegion(Shape{Kind: KindCone, X: 300, Y: 300, Distance: 1, Angle: 90}, testGrid())
	if err != nil {
		t.Fatalf("BuildRegion: %v", err)
	}
	if !region.Contains(300, 300) {
		t.Fatal("expected cone apex to be contained")
	}
	// Directly behind the apex.
	if region.Contains(250, 300) {
		t.Fatal("expected point behind the cone to be excluded")
	}
}

func TestRayShapeDirectionZero(t *testing.T) {
	pts := RayShape(200, 0, 100)
	want := []float64{0, 50, 0, -50, 200, -50, 200, 50, 0, 50}
	if len(pts) != len(want) {
		t.Fatalf("len = %d, want %d", len(pts), len(want))
	}
	for i := range want {
		if math.Abs(pts[i]-want[i]) > 1e-9 {
			t.Fatalf("pts[%d] = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestConeShapeRoundSpansAngle(t *testing.T) {
	pts := ConeShape(100, 0, 90, ConeRound)
	// origin + floor(90/3) rays + closing ray + origin
	if got, want := len(pts)/2, 1+30+1+1; got != want {
		t.Fatalf("points = %d, want %d", got, want)
	}
	firstX, firstY := pts[2], pts[3]
	if math.Abs(firstX-100*math.Cos(-math.Pi/4)) > 1e-9 || math.Abs(firstY-100*math.Sin(-math.Pi/4)) > 1e-9 {
		t.Fatalf("first arc point = (%v, %v)", firstX, firstY)
	}
}

func TestConeShapeFlatWideFallsBackToRound(t *testing.T) {
	for _, angle := range []float64{180, 240} {
		flat := ConeShape(100, 0, angle, ConeFlat)
		round := ConeShape(100, 0, angle, ConeRound)
		if len(flat) != len(round) {
			t.Fatalf("angle %v: flat has %d points, want round's %d", angle, len(flat)/2, len(round)/2)
		}
		for i := 2; i < len(flat)-2; i += 2 {
			if d := math.Hypot(flat[i], flat[i+1]); math.Abs(d-100) > 1e-9 {
				t.Fatalf("angle %v: point %d at distance %v, want 100", angle, i/2, d)
			}
		}
	}
}

func TestConeShapeFlatEdgeDistance(t *testing.T) {
	pts := ConeShape(100, 0, 90, ConeFlat)
	// Both edge points sit 100px ahead of the origin.
	for _, i := range []int{2, 4} {
		if math.Abs(pts[i]-100) > 1e-9 {
			t.Fatalf("edge point x = %v, want 100", pts[i])
		}
	}
}

type centered Point

func (c centered) Center() Point { return Point(c) }

func TestContainsCenterNilRegion(t *testing.T) {
	if ContainsCenter(nil, centered{X: 0, Y: 0}) {
		t.Fatal("nil region must report not contained")
	}
	region := Circle{Radius: 10}
	if !ContainsCenter(region, centered{X: 5, Y: 5}) {
		t.Fatal("expected center to be contained")
	}
}
