// Package capture is the boundary to the measurement capture pipeline. The
// capture hardware and scan processing are black boxes; what arrives here is
// a finished payload of named areas, each defined by a floor-plane polygon
// or a device-computed square footage. The payload is validated and handed
// to the entity store.
package capture

import (
	"fmt"

	"github.com/zulandar/fieldsync/internal/derive"
	"github.com/zulandar/fieldsync/internal/models"
	"github.com/zulandar/fieldsync/internal/store"
)

// AreaPayload is one measured region in a capture payload.
type AreaPayload struct {
	Name       string
	SquareFeet float64        // authoritative when no polygon is given
	Vertices   []derive.Point // floor-plane polygon, optional
}

// MeasurementPayload is a completed capture session.
type MeasurementPayload struct {
	Label    string
	ClientID string // optional owner
	Raw      []byte // opaque scan output, stored as-is
	Areas    []AreaPayload
}

// Validate rejects malformed payloads before anything is stored.
func (p *MeasurementPayload) Validate() error {
	if p.Label == "" {
		return fmt.Errorf("capture: payload needs a label: %w", store.ErrValidation)
	}
	if len(p.Areas) == 0 {
		return fmt.Errorf("capture: payload needs at least one area: %w", store.ErrValidation)
	}
	for i, a := range p.Areas {
		if a.Name == "" {
			return fmt.Errorf("capture: area %d needs a name: %w", i, store.ErrValidation)
		}
		if len(a.Vertices) > 0 && len(a.Vertices) < 3 {
			return fmt.Errorf("capture: area %q polygon needs at least 3 vertices: %w", a.Name, store.ErrValidation)
		}
		if len(a.Vertices) == 0 && a.SquareFeet <= 0 {
			return fmt.Errorf("capture: area %q needs a polygon or a positive square footage: %w", a.Name, store.ErrValidation)
		}
	}
	return nil
}

// Intake validates a capture payload and persists it through the store as a
// measurement with ordered areas. Square footage is derived from the
// polygons during the store's recompute pass.
func Intake(s *store.Store, p *MeasurementPayload) (*models.Measurement, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := &models.Measurement{
		Label:       p.Label,
		ScanPayload: p.Raw,
	}
	if p.ClientID != "" {
		clientID := p.ClientID
		m.ClientID = &clientID
	}

	areas := make([]models.Area, len(p.Areas))
	for i, a := range p.Areas {
		areas[i] = models.Area{
			Name:       a.Name,
			SquareFeet: a.SquareFeet,
		}
		if len(a.Vertices) > 0 {
			vertices, err := derive.MarshalVertices(a.Vertices)
			if err != nil {
				return nil, fmt.Errorf("capture: area %q: %w", a.Name, err)
			}
			areas[i].Vertices = vertices
		}
	}

	if err := s.CreateMeasurement(m, areas); err != nil {
		return nil, err
	}
	m.Areas = areas
	return m, nil
}
