package entity

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrProfileMismatch is returned when a payload does not belong to the account role
var ErrProfileMismatch = errors.New("profile does not match role")

// PatientProfile is the medical profile carried by patient accounts
type PatientProfile struct {
	FullName         string   `json:"full_name"`
	Phone            string   `json:"phone,omitempty"`
	DateOfBirth      string   `json:"date_of_birth,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	Address          string   `json:"address,omitempty"`
	BloodGroup       string   `json:"blood_group,omitempty"`
	Allergies        []string `json:"allergies,omitempty"`
	EmergencyContact string   `json:"emergency_contact,omitempty"`
}

// ClinicProfile describes a clinic account
type ClinicProfile struct {
	ClinicName    string   `json:"clinic_name"`
	ContactPerson string   `json:"contact_person,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Address       string   `json:"address,omitempty"`
	LicenseNumber string   `json:"license_number,omitempty"`
	Specialties   []string `json:"specialties,omitempty"`
	OpeningHours  string   `json:"opening_hours,omitempty"`
}

// DoctorProfile carries doctor credentials
type DoctorProfile struct {
	FullName          string   `json:"full_name"`
	Phone             string   `json:"phone,omitempty"`
	Specialization    string   `json:"specialization,omitempty"`
	LicenseNumber     string   `json:"license_number,omitempty"`
	YearsOfExperience int      `json:"years_of_experience,omitempty"`
	Qualifications    []string `json:"qualifications,omitempty"`
	ClinicID          string   `json:"clinic_id,omitempty"`
}

// PharmacistProfile carries pharmacist licensing
type PharmacistProfile struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	PharmacyName  string `json:"pharmacy_name,omitempty"`
	Address       string `json:"address,omitempty"`
}

// Profile is the role-specific payload of an account. Exactly one field is set,
// matching the account role.
type Profile struct {
	Patient    *PatientProfile    `json:"patient,omitempty"`
	Clinic     *ClinicProfile     `json:"clinic,omitempty"`
	Doctor     *DoctorProfile     `json:"doctor,omitempty"`
	Pharmacist *PharmacistProfile `json:"pharmacist,omitempty"`
}

// Name returns the role-specific full name, or "" when none is set
func (p Profile) Name() string {
	switch {
	case p.Patient != nil:
		return strings.TrimSpace(p.Patient.FullName)
	case p.Clinic != nil:
		return strings.TrimSpace(p.Clinic.ClinicName)
	case p.Doctor != nil:
		return strings.TrimSpace(p.Doctor.FullName)
	case p.Pharmacist != nil:
		return strings.TrimSpace(p.Pharmacist.FullName)
	}
	return ""
}

// Matches reports whether exactly the payload for role r is present
func (p Profile) Matches(r Role) bool {
	set := 0
	var has bool
	if p.Patient != nil {
		set++
		has = has || r == RolePatient
	}
	if p.Clinic != nil {
		set++
		has = has || r == RoleClinic
	}
	if p.Doctor != nil {
		set++
		has = has || r == RoleDoctor
	}
	if p.Pharmacist != nil {
		set++
		has = has || r == RolePharmacist
	}
	return set == 1 && has
}

// MarshalFor encodes only the payload for role r, which is how partitions store it
func (p Profile) MarshalFor(r Role) ([]byte, error) {
	if !p.Matches(r) {
		return nil, ErrProfileMismatch
	}
	switch r {
	case RolePatient:
		return json.Marshal(p.Patient)
	case RoleClinic:
		return json.Marshal(p.Clinic)
	case RoleDoctor:
		return json.Marshal(p.Doctor)
	default:
		return json.Marshal(p.Pharmacist)
	}
}

// UnmarshalProfile decodes a partition payload for role r
func UnmarshalProfile(r Role, b []byte) (Profile, error) {
	if len(b) == 0 {
		b = []byte("{}")
	}
	var p Profile
	var err error
	switch r {
	case RolePatient:
		p.Patient = &PatientProfile{}
		err = json.Unmarshal(b, p.Patient)
	case RoleClinic:
		p.Clinic = &ClinicProfile{}
		err = json.Unmarshal(b, p.Clinic)
	case RoleDoctor:
		p.Doctor = &DoctorProfile{}
		err = json.Unmarshal(b, p.Doctor)
	case RolePharmacist:
		p.Pharmacist = &PharmacistProfile{}
		err = json.Unmarshal(b, p.Pharmacist)
	default:
		return Profile{}, ErrProfileMismatch
	}
	return p, err
}
