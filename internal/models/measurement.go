package models

// Measurement is a LiDAR capture session. It owns an ordered sequence of
// areas; TotalArea is always recomputed as the sum of the current areas and
// is never edited directly.
type Measurement struct {
	SyncFields `gorm:"embedded"`

	Label       string  `gorm:"size:128;not null"`
	ScanPayload []byte  `gorm:"type:blob"` // raw capture output, opaque to the data layer
	TotalArea   float64 `gorm:"default:0.0"`
	ClientID    *string `gorm:"size:36;index"`

	Areas []Area `gorm:"foreignKey:MeasurementID"`
}

// Area is a single measured region within a measurement. SquareFeet is
// derived from the polygon when vertices are present; otherwise the stored
// value supplied by the capture device is authoritative.
type Area struct {
	SyncFields `gorm:"embedded"`

	MeasurementID string  `gorm:"size:36;not null;index"`
	Name          string  `gorm:"size:128"`
	SquareFeet    float64 `gorm:"default:0.0"`
	Vertices      string  `gorm:"type:json"` // JSON array of {x, z} planar points
	SortOrder     int     `gorm:"default:0;index"`
}
