package dto

import "github.com/irrelevantclub/toolkit-backend/internal/models"

type RegisterResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	UserType models.UserType `json:"userType"`
	Country  string          `json:"country"`
	Token    string          `json:"token"`
}

func NewRegisterResponse(u *models.User, token string) RegisterResponse {
	return RegisterResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		UserType: u.UserType,
		Country:  u.Country,
		Token:    token,
	}
}

// VerifyPhraseRequest keeps the phrase untyped so a non-string value can be
// told apart from a missing one.
type VerifyPhraseRequest struct {
	SecretPhrase any `json:"secretPhrase"`
}

type VerifyPhraseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type MeResponse struct {
	UserID          string       `json:"userId"`
	IsSpecialAccess bool         `json:"isSpecialAccess"`
	User            *models.User `json:"user,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HomeResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
