package capture

import (
	"errors"
	"testing"

	"github.com/zulandar/fieldsync/internal/db"
	"github.com/zulandar/fieldsync/internal/derive"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	gdb, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return store.New(gdb)
}

func TestValidate(t *testing.T) {
	square := []derive.Point{{X: 0, Z: 0}, {X: 10, Z: 0}, {X: 10, Z: 8}, {X: 0, Z: 8}}
	tests := []struct {
		name    string
		payload MeasurementPayload
		wantErr bool
	}{
		{"valid polygon", MeasurementPayload{Label: "Roof", Areas: []AreaPayload{{Name: "North", Vertices: square}}}, false},
		{"valid square footage", MeasurementPayload{Label: "Roof", Areas: []AreaPayload{{Name: "North", SquareFeet: 120}}}, false},
		{"missing label", MeasurementPayload{Areas: []AreaPayload{{Name: "North", SquareFeet: 120}}}, true},
		{"no areas", MeasurementPayload{Label: "Roof"}, true},
		{"unnamed area", MeasurementPayload{Label: "Roof", Areas: []AreaPayload{{SquareFeet: 120}}}, true},
		{"degenerate polygon", MeasurementPayload{Label: "Roof", Areas: []AreaPayload{{Name: "N", Vertices: square[:2]}}}, true},
		{"no polygon, no footage", MeasurementPayload{Label: "Roof", Areas: []AreaPayload{{Name: "N"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				if !errors.Is(err, store.ErrValidation) {
					t.Errorf("err = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIntake(t *testing.T) {
	s := openTestStore(t)

	p := &MeasurementPayload{
		Label: "Main house",
		Raw:   []byte{0xde, 0xad},
		Areas: []AreaPayload{
			{Name: "Garage", SquareFeet: 120},
			{Name: "Roof", Vertices: []derive.Point{{X: 0, Z: 0}, {X: 10, Z: 0}, {X: 10, Z: 8}, {X: 0, Z: 8}}},
		},
	}
	m, err := Intake(s, p)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}

	got, err := s.GetMeasurement(m.LocalID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "Main house" || len(got.ScanPayload) != 2 {
		t.Errorf("measurement = %+v", got)
	}
	if len(got.Areas) != 2 {
		t.Fatalf("areas = %d, want 2", len(got.Areas))
	}
	// The polygon area is derived; the direct footage is kept.
	if got.Areas[0].SquareFeet != 120 || got.Areas[1].SquareFeet != 80 {
		t.Errorf("square feet = %v/%v, want 120/80", got.Areas[0].SquareFeet, got.Areas[1].SquareFeet)
	}
	if got.TotalArea != 200 {
		t.Errorf("TotalArea = %v, want 200", got.TotalArea)
	}
}

func TestIntake_RejectsInvalid(t *testing.T) {
	s := openTestStore(t)

	_, err := Intake(s, &MeasurementPayload{Label: "Roof"})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	var count int64
	if err := s.DB().Model(&models.Measurement{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rows = %d, want 0", count)
	}
}
