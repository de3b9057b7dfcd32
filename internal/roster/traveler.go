package roster

import "strings"

// TravelerForm is the per-traveler sub-form filled in at the item-details step.
type TravelerForm struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Weight          string `json:"weight,omitempty"`
	PassportNumber  string `json:"passportNumber,omitempty"`
	PassportExpiry  string `json:"passportExpiry,omitempty"`
	PassportCountry string `json:"passportCountry,omitempty"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
}

func (f TravelerForm) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName))
}

// Blank reports whether no field has been filled in.
func (f TravelerForm) Blank() bool { return f == TravelerForm{} }
