package models

import "strings"

// Dependent is a family member whose medications are tracked separately.
type Dependent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Avatar       string `json:"avatar,omitempty"`
}

// BloodTypes lists the selectable blood types.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-", "Unknown"}

// UserProfile is the singleton describing the primary user.
type UserProfile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BloodType string `json:"bloodType"`
	Allergies string `json:"allergies"`
}

// DefaultProfile returns the profile used before the user has set up.
func DefaultProfile() UserProfile {
	return UserProfile{
		BloodType: "Unknown",
		Allergies: "None",
	}
}

// SetUp reports whether the profile has been filled in. An empty or
// whitespace name gates medication creation.
func (p UserProfile) SetUp() bool {
	return strings.TrimSpace(p.Name) != ""
}
