package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
	"github.com/irrelevantclub/toolkit-backend/internal/store"
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrInvalidUserType    = errors.New("unrecognized user type")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrPersistence        = errors.New("failed to create user")
	ErrUserNotFound       = errors.New("user not found")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

var (
	baseFields       = []string{"name", "email", "country", "userType"}
	companyFields    = []string{"company", "automationNeeds"}
	individualFields = []string{"interestArea", "toolsUsed", "projectDescription"}

	// serverFields are assigned by the service or the store and never read
	// from a submission.
	serverFields = map[string]bool{
		"_id":              true,
		"id":               true,
		"registrationDate": true,
		"isVerified":       true,
	}
)

// FieldError reports a required field that is absent or empty.
type FieldError struct {
	Field string
	// Company is set when the field is required because userType is Empresa.
	Company bool
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s is required", e.Field)
}

func (e *FieldError) Unwrap() error { return ErrMissingField }

// Submission is the raw registration payload.
type Submission map[string]any

// str returns the value of field when it is a non-empty string.
func (s Submission) str(field string) (string, bool) {
	v, ok := s[field].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

type UserService struct {
	store           store.UserStore
	strictUserTypes bool
	now             func() time.Time
}

func NewUserService(st store.UserStore, cfg *config.Config) *UserService {
	return &UserService{
		store:           st,
		strictUserTypes: cfg.StrictUserTypes,
		now:             time.Now,
	}
}

// Create validates sub, enforces email uniqueness and persists the record.
// The returned user is re-read from the store.
func (s *UserService) Create(ctx context.Context, sub Submission) (*models.User, error) {
	user, err := s.validate(sub)
	if err != nil {
		return nil, err
	}

	_, err = s.store.FindByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: email lookup: %w", ErrPersistence, err)
	}

	user.RegistrationDate = s.now().UTC()
	user.IsVerified = false

	// The store's unique index is the authoritative check; it also covers a
	// concurrent registration that passed the lookup above.
	id, err := s.store.Insert(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: store returned no id", ErrPersistence)
	}

	created, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: reload %s: %w", ErrPersistence, id, err)
	}
	return created, nil
}

func (s *UserService) validate(sub Submission) (*models.User, error) {
	base := make(map[string]string, len(baseFields))
	for _, f := range baseFields {
		v, ok := sub.str(f)
		if !ok {
			return nil, &FieldError{Field: f}
		}
		base[f] = v
	}

	if !emailPattern.MatchString(base["email"]) {
		return nil, ErrInvalidEmailFormat
	}

	user := &models.User{
		Name:     base["name"],
		Email:    base["email"],
		Country:  base["country"],
		UserType: models.UserType(base["userType"]),
	}

	switch {
	case user.UserType.IsCompany():
		for _, f := range companyFields {
			if _, ok := sub.str(f); !ok {
				return nil, &FieldError{Field: f, Company: true}
			}
		}
	case user.UserType.IsIndividual():
		for _, f := range individualFields {
			if _, ok := sub.str(f); !ok {
				return nil, &FieldError{Field: f}
			}
		}
	case !user.UserType.Known():
		if s.strictUserTypes {
			return nil, ErrInvalidUserType
		}
		// Lenient mode: no group fields are required for an unknown type.
		slog.Warn("registration with unrecognized userType", "user_type", user.UserType, "email", user.Email)
	}

	// Group fields are kept whenever they are submitted, whichever group
	// the type requires.
	user.Company, _ = sub.str("company")
	user.AutomationNeeds, _ = sub.str("automationNeeds")
	user.InterestArea, _ = sub.str("interestArea")
	user.ToolsUsed, _ = sub.str("toolsUsed")
	user.ProjectDescription, _ = sub.str("projectDescription")

	user.Extra = extraFields(sub)
	return user, nil
}

// extraFields keeps every submitted key the model has no field for.
func extraFields(sub Submission) map[string]any {
	known := make(map[string]bool, len(baseFields)+len(companyFields)+len(individualFields))
	for _, group := range [][]string{baseFields, companyFields, individualFields} {
		for _, f := range group {
			known[f] = true
		}
	}

	var extra map[string]any
	for k, v := range sub {
		if known[k] || serverFields[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByEmail loads a user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Message renders a creation error as the text shown to the registrant.
func Message(err error) string {
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		if fe.Company {
			return fmt.Sprintf("El campo %s es requerido para empresas", fe.Field)
		}
		return fmt.Sprintf("El campo %s es requerido", fe.Field)
	case errors.Is(err, ErrInvalidEmailFormat):
		return "El formato del email no es válido"
	case errors.Is(err, ErrInvalidUserType):
		return "El campo userType no es válido"
	case errors.Is(err, ErrDuplicateEmail):
		return "Este email ya está registrado"
	default:
		return "Error al crear el usuario"
	}
}
