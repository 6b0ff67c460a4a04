package models

import "time"

// UserType discriminates which profile fields a registrant must provide.
type UserType string

const (
	UserTypeEmpresa     UserType = "Empresa"
	UserTypeEmprendedor UserType = "Emprendedor"
	UserTypeFreelancer  UserType = "Freelancer"
	UserTypePersona     UserType = "Persona"
)

// IsCompany reports whether the type uses the company field group.
func (t UserType) IsCompany() bool {
	return t == UserTypeEmpresa
}

// IsIndividual reports whether the type uses the interest/tools/project field group.
func (t UserType) IsIndividual() bool {
	switch t {
	case UserTypeEmprendedor, UserTypeFreelancer, UserTypePersona:
		return true
	}
	return false
}

// Known reports whether t is one of the enumerated user types.
func (t UserType) Known() bool {
	return t.IsCompany() || t.IsIndividual()
}

// User is a registrant as persisted by the store.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Country  string   `json:"country"`
	UserType UserType `json:"userType"`

	// Empresa
	Company         string `json:"company,omitempty"`
	AutomationNeeds string `json:"automationNeeds,omitempty"`

	// Emprendedor, Freelancer, Persona
	InterestArea       string `json:"interestArea,omitempty"`
	ToolsUsed          string `json:"toolsUsed,omitempty"`
	ProjectDescription string `json:"projectDescription,omitempty"`

	RegistrationDate time.Time `json:"registrationDate"`
	IsVerified       bool      `json:"isVerified"`

	// Extra holds any other submitted keys; they are stored with the document.
	Extra map[string]any `json:"extra,omitempty"`
}
