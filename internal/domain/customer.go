package domain

import "time"

// Customer is the profile of an account holder. It owns addresses and
// belongs to customer groups.
type Customer struct {
	ID                       string          `json:"id"`
	UserID                   *string         `json:"user_id,omitempty"`
	Email                    string          `json:"email"`
	FirstName                string          `json:"first_name"`
	LastName                 string          `json:"last_name"`
	Phone                    string          `json:"phone,omitempty"`
	AvatarURL                string          `json:"avatar_url,omitempty"`
	HasAccount               bool            `json:"has_account"`
	DefaultShippingAddressID *string         `json:"default_shipping_address_id"`
	DefaultBillingAddressID  *string         `json:"default_billing_address_id"`
	Metadata                 map[string]any  `json:"metadata,omitempty"`
	Groups                   []CustomerGroup `json:"groups"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// CustomerProfile is the set of mutable profile fields. Updates overwrite
// every field.
type CustomerProfile struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	AvatarURL string
	Metadata  map[string]any
}

// ApplyProfile overwrites the profile fields. Addresses, groups and default
// pointers are left alone.
func (c *Customer) ApplyProfile(p CustomerProfile) {
	c.Email = p.Email
	c.FirstName = p.FirstName
	c.LastName = p.LastName
	c.Phone = p.Phone
	c.AvatarURL = p.AvatarURL
	c.Metadata = p.Metadata
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CustomerGroup is a named segment of customers.
type CustomerGroup struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
