package derive

import (
	"math"
	"reflect"
	"testing"

	"github.com/zulandar/fieldsync/internal/models"
)

func TestPolygonArea(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		{"empty", nil, 0},
		{"line segment", []Point{{0, 0}, {10, 0}}, 0},
		{"10x8 rectangle", []Point{{0, 0}, {10, 0}, {10, 8}, {0, 8}}, 80},
		{"reverse winding", []Point{{0, 8}, {10, 8}, {10, 0}, {0, 0}}, 80},
		{"right triangle", []Point{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"offset square", []Point{{5, 5}, {7, 5}, {7, 7}, {5, 7}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PolygonArea(tt.pts); got != tt.want {
				t.Errorf("PolygonArea = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerticesRoundTrip(t *testing.T) {
	pts := []Point{{0, 0}, {10, 0}, {10, 8}, {0, 8}}
	s, err := MarshalVertices(pts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalVertices(s)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != len(pts) {
		t.Fatalf("len = %d, want %d", len(got), len(pts))
	}
	if got[2] != pts[2] {
		t.Errorf("got[2] = %v, want %v", got[2], pts[2])
	}
}

func TestUnmarshalVertices_Empty(t *testing.T) {
	pts, err := UnmarshalVertices("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts != nil {
		t.Errorf("expected nil for empty input, got %v", pts)
	}
}

func TestUnmarshalVertices_Malformed(t *testing.T) {
	if _, err := UnmarshalVertices("{not json"); err == nil {
		t.Fatal("expected error for malformed vertices")
	}
}

func TestRecomputeArea_StoredValueAuthoritative(t *testing.T) {
	a := models.Area{SquareFeet: 123.5}
	if err := RecomputeArea(&a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SquareFeet != 123.5 {
		t.Errorf("SquareFeet = %v, want stored 123.5", a.SquareFeet)
	}
}

func TestRecomputeArea_PolygonWins(t *testing.T) {
	s, _ := MarshalVertices([]Point{{0, 0}, {10, 0}, {10, 8}, {0, 8}})
	a := models.Area{SquareFeet: 999, Vertices: s}
	if err := RecomputeArea(&a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SquareFeet != 80 {
		t.Errorf("SquareFeet = %v, want 80", a.SquareFeet)
	}
}

func TestRecomputeMeasurement_SumsAreas(t *testing.T) {
	s, _ := MarshalVertices([]Point{{0, 0}, {10, 0}, {10, 8}, {0, 8}})
	m := models.Measurement{TotalArea: 1}
	areas := []models.Area{
		{Vertices: s},
		{SquareFeet: 20},
	}
	if err := RecomputeMeasurement(&m, areas); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TotalArea != 100 {
		t.Errorf("TotalArea = %v, want 100", m.TotalArea)
	}
}

func TestRecomputeMeasurement_NoAreas(t *testing.T) {
	m := models.Measurement{TotalArea: 50}
	if err := RecomputeMeasurement(&m, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TotalArea != 0 {
		t.Errorf("TotalArea = %v, want 0 with no areas", m.TotalArea)
	}
}

func TestRoundCurrency_Bankers(t *testing.T) {
	// Tie cases use eighths so v*100 is exactly representable in binary.
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12}, // tie, rounds to even
		{0.375, 0.38}, // tie, rounds to even
		{0.625, 0.62},
		{0.875, 0.88},
		{1.004, 1.00},
		{1.006, 1.01},
		{-0.125, -0.12},
	}
	for _, tt := range tests {
		if got := RoundCurrency(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundCurrency(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecomputeBid(t *testing.T) {
	b := models.Bid{TaxRate: 0.10, MaterialCost: 30, LaborCost: 20}
	items := []models.BidLineItem{
		{Quantity: 2, UnitPrice: 25},   // 50
		{Quantity: 3, UnitPrice: 16.5}, // 49.50
	}
	RecomputeBid(&b, items)

	if b.Subtotal != 99.5 {
		t.Errorf("Subtotal = %v, want 99.5", b.Subtotal)
	}
	if b.TaxAmount != 9.95 {
		t.Errorf("TaxAmount = %v, want 9.95", b.TaxAmount)
	}
	if b.TotalPrice != 109.45 {
		t.Errorf("TotalPrice = %v, want 109.45", b.TotalPrice)
	}
	wantMargin := (109.45 - 30 - 20) / 109.45
	if math.Abs(b.ProfitMargin-wantMargin) > 1e-9 {
		t.Errorf("ProfitMargin = %v, want %v", b.ProfitMargin, wantMargin)
	}
	if b.TotalPrice != RoundCurrency(b.Subtotal+b.TaxAmount) {
		t.Errorf("TotalPrice %v != Subtotal %v + TaxAmount %v", b.TotalPrice, b.Subtotal, b.TaxAmount)
	}
}

func TestRecomputeBid_ZeroTotal(t *testing.T) {
	b := models.Bid{MaterialCost: 100}
	RecomputeBid(&b, nil)
	if b.ProfitMargin != 0 {
		t.Errorf("ProfitMargin = %v, want 0 when total is 0", b.ProfitMargin)
	}
	if b.TotalPrice != 0 || b.Subtotal != 0 || b.TaxAmount != 0 {
		t.Errorf("expected zero totals, got subtotal=%v tax=%v total=%v", b.Subtotal, b.TaxAmount, b.TotalPrice)
	}
}

// Recompute must be idempotent: a second pass over unchanged inputs yields
// bit-identical derived fields.
func TestRecompute_Idempotent(t *testing.T) {
	b := models.Bid{TaxRate: 0.0825, MaterialCost: 12.34, LaborCost: 56.78}
	items := []models.BidLineItem{
		{Quantity: 7, UnitPrice: 19.99},
		{Quantity: 1.5, UnitPrice: 33.33},
	}
	RecomputeBid(&b, items)
	first := b
	RecomputeBid(&b, items)
	if !reflect.DeepEqual(b, first) {
		t.Errorf("second recompute changed bid: %+v vs %+v", b, first)
	}

	s, _ := MarshalVertices([]Point{{0, 0}, {3.3, 0}, {3.3, 7.7}, {0, 7.7}})
	m := models.Measurement{}
	areas := []models.Area{{Vertices: s}, {SquareFeet: 41.2}}
	if err := RecomputeMeasurement(&m, areas); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstTotal := m.TotalArea
	if err := RecomputeMeasurement(&m, areas); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TotalArea != firstTotal {
		t.Errorf("second recompute changed total: %v vs %v", m.TotalArea, firstTotal)
	}
}
