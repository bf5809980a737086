// Package derive holds the pure derived-value functions: polygon area,
// measurement aggregation, and bid pricing. Nothing here touches the
// database; the store calls these after every mutation that changes their
// inputs.
package derive

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/zulandar/fieldsync/internal/models"
)

// Point is a planar capture coordinate. The capture pipeline delivers
// vertices on the X/Z ground plane.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// PolygonArea computes the area of a simple polygon via the shoelace
// formula. Winding order doesn't matter; fewer than three vertices yield 0.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Z - pts[j].X*pts[i].Z
	}
	return math.Abs(sum) / 2
}

// MarshalVertices encodes a vertex list for storage on an Area row.
func MarshalVertices(pts []Point) (string, error) {
	data, err := json.Marshal(pts)
	if err != nil {
		return "", fmt.Errorf("derive: marshal vertices: %w", err)
	}
	return string(data), nil
}

// UnmarshalVertices decodes a stored vertex list. Empty input means the
// capture supplied a direct square footage instead of a polygon.
func UnmarshalVertices(s string) ([]Point, error) {
	if s == "" {
		return nil, nil
	}
	var pts []Point
	if err := json.Unmarshal([]byte(s), &pts); err != nil {
		return nil, fmt.Errorf("derive: unmarshal vertices: %w", err)
	}
	return pts, nil
}

// RecomputeArea derives SquareFeet from the stored polygon. When no polygon
// is present the stored value is authoritative and left untouched.
func RecomputeArea(a *models.Area) error {
	pts, err := UnmarshalVertices(a.Vertices)
	if err != nil {
		return err
	}
	if len(pts) >= 3 {
		a.SquareFeet = PolygonArea(pts)
	}
	return nil
}

// RecomputeMeasurement recomputes every area then sets TotalArea to the sum
// of the current areas. TotalArea is never an independent source of truth.
func RecomputeMeasurement(m *models.Measurement, areas []models.Area) error {
	var total float64
	for i := range areas {
		if err := RecomputeArea(&areas[i]); err != nil {
			return fmt.Errorf("derive: area %s: %w", areas[i].LocalID, err)
		}
		total += areas[i].SquareFeet
	}
	m.TotalArea = total
	return nil
}
