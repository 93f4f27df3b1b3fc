package domain

import "fmt"

// Entity is a record offered by a search-driven picker.
type Entity interface {
	EntityID() string
	Label() string
}

// Customer is a renter as returned by the customer search service.
type Customer struct {
	ID            string `json:"id" yaml:"id" mapstructure:"id"`
	FullName      string `json:"full_name" yaml:"full_name" mapstructure:"full_name"`
	Phone         string `json:"phone" yaml:"phone" mapstructure:"phone"`
	IDNumber      string `json:"id_number" yaml:"id_number" mapstructure:"id_number"`
	LicenseNumber string `json:"license_number" yaml:"license_number" mapstructure:"license_number"`
	Email         string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
}

func (c Customer) EntityID() string { return c.ID }
func (c Customer) Label() string    { return fmt.Sprintf("%s (%s)", c.FullName, c.Phone) }

// Vehicle is a fleet vehicle as returned by the vehicle search service.
type Vehicle struct {
	ID               string  `json:"id" yaml:"id" mapstructure:"id"`
	PlateNumber      string  `json:"plate_number" yaml:"plate_number" mapstructure:"plate_number"`
	Make             string  `json:"make" yaml:"make" mapstructure:"make"`
	Model            string  `json:"model" yaml:"model" mapstructure:"model"`
	Year             int     `json:"year" yaml:"year" mapstructure:"year"`
	Color            string  `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
	DailyRentalRate  float64 `json:"daily_rental_rate" yaml:"daily_rental_rate" mapstructure:"daily_rental_rate"`
	PermittedDailyKm float64 `json:"permitted_daily_km" yaml:"permitted_daily_km" mapstructure:"permitted_daily_km"`
	ExtraKmRate      float64 `json:"extra_km_rate" yaml:"extra_km_rate" mapstructure:"extra_km_rate"`
	CurrentMileage   float64 `json:"current_mileage" yaml:"current_mileage" mapstructure:"current_mileage"`
	Status           string  `json:"status,omitempty" yaml:"status,omitempty" mapstructure:"status"`
}

func (v Vehicle) EntityID() string { return v.ID }
func (v Vehicle) Label() string {
	return fmt.Sprintf("%s %s %d [%s]", v.Make, v.Model, v.Year, v.PlateNumber)
}

// Inspector is a staff member who performs hand-over inspections.
type Inspector struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	FullName string `json:"full_name" yaml:"full_name" mapstructure:"full_name"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty" mapstructure:"phone"`
}

func (i Inspector) EntityID() string { return i.ID }
func (i Inspector) Label() string    { return i.FullName }

// Payload is the server-shaped record produced at submit time. It is
// write-only: nothing reads it back into a FieldSet.
type Payload map[string]any
