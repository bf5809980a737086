package models

// Client is a customer of the field-service business. It owns its
// measurements, bids, and jobs: deleting a client cascades to all of them.
type Client struct {
	SyncFields `gorm:"embedded"`

	FirstName    string  `gorm:"size:64"`
	LastName     string  `gorm:"size:64"`
	Company      string  `gorm:"size:128"`
	Email        string  `gorm:"size:128;index"`
	Phone        string  `gorm:"size:32"`
	Address      string  `gorm:"size:256"`
	Tags         string  `gorm:"type:json"` // JSON array of strings
	TotalRevenue float64 `gorm:"type:decimal(12,2);default:0.0"`

	Measurements []Measurement `gorm:"foreignKey:ClientID"`
	Bids         []Bid         `gorm:"foreignKey:ClientID"`
	Jobs         []Job         `gorm:"foreignKey:ClientID"`
}

// DisplayName returns the client's full name, falling back to the company
// name, then a placeholder.
func (c *Client) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	case c.Company != "":
		return c.Company
	}
	return "Unnamed Client"
}
