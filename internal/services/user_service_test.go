package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
	"github.com/irrelevantclub/toolkit-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personaSubmission() Submission {
	return Submission{
		"name":               "Ana",
		"email":              "ana@x.com",
		"country":            "CO",
		"userType":           "Persona",
		"interestArea":       "AI",
		"toolsUsed":          "none",
		"projectDescription": "demo",
	}
}

func empresaSubmission() Submission {
	return Submission{
		"name":            "Acme",
		"email":           "ops@acme.io",
		"country":         "MX",
		"userType":        "Empresa",
		"company":         "Acme SA",
		"automationNeeds": "invoicing",
	}
}

func newService(t *testing.T, cfg *config.Config) (*UserService, *store.MemoryStore) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	st := store.NewMemoryStore()
	return NewUserService(st, cfg), st
}

func TestCreate_Persona(t *testing.T) {
	svc, st := newService(t, nil)
	fixed := time.Date(2025, 5, 4, 10, 0, 0, 0, time.FixedZone("COT", -5*3600))
	svc.now = func() time.Time { return fixed }

	u, err := svc.Create(context.Background(), personaSubmission())
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, models.UserTypePersona, u.UserType)
	assert.Equal(t, "AI", u.InterestArea)
	assert.Equal(t, "none", u.ToolsUsed)
	assert.Equal(t, "demo", u.ProjectDescription)
	assert.False(t, u.IsVerified)
	assert.Equal(t, time.UTC, u.RegistrationDate.Location())
	assert.True(t, fixed.Equal(u.RegistrationDate))
	assert.Equal(t, 1, st.Count())
}

func TestCreate_Empresa(t *testing.T) {
	svc, _ := newService(t, nil)

	u, err := svc.Create(context.Background(), empresaSubmission())
	require.NoError(t, err)
	assert.Equal(t, "Acme SA", u.Company)
	assert.Equal(t, "invoicing", u.AutomationNeeds)
	assert.Empty(t, u.InterestArea)
}

func TestCreate_MissingBaseFields(t *testing.T) {
	for _, field := range []string{"name", "email", "country", "userType"} {
		for _, variant := range []string{"absent", "empty", "non-string"} {
			t.Run(field+"/"+variant, func(t *testing.T) {
				svc, st := newService(t, nil)
				sub := personaSubmission()
				switch variant {
				case "absent":
					delete(sub, field)
				case "empty":
					sub[field] = ""
				case "non-string":
					sub[field] = nil
				}

				_, err := svc.Create(context.Background(), sub)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMissingField)

				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, field, fe.Field)
				assert.Equal(t, 0, st.Count())
			})
		}
	}
}

func TestCreate_BaseFieldsCheckedInOrder(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Create(context.Background(), Submission{"email": "not-an-email"})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "name", fe.Field)
}

func TestCreate_EmpresaMissingFields(t *testing.T) {
	for _, field := range []string{"company", "automationNeeds"} {
		t.Run(field, func(t *testing.T) {
			svc, _ := newService(t, nil)
			sub := empresaSubmission()
			delete(sub, field)

			_, err := svc.Create(context.Background(), sub)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, field, fe.Field)
			assert.True(t, fe.Company)
			assert.Equal(t, "El campo "+field+" es requerido para empresas", Message(err))
		})
	}
}

func TestCreate_IndividualMissingFields(t *testing.T) {
	for _, userType := range []string{"Emprendedor", "Freelancer", "Persona"} {
		for _, field := range []string{"interestArea", "toolsUsed", "projectDescription"} {
			t.Run(userType+"/"+field, func(t *testing.T) {
				svc, _ := newService(t, nil)
				sub := personaSubmission()
				sub["userType"] = userType
				sub[field] = ""

				_, err := svc.Create(context.Background(), sub)
				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, field, fe.Field)
				assert.False(t, fe.Company)
			})
		}
	}
}

func TestCreate_InvalidEmail(t *testing.T) {
	bad := []string{
		"plain",
		"no-at.example.com",
		"a@b",
		"@x.com",
		"a@.com",
		"a b@x.com",
		"a@x_y.com",
		"a@x.com\n",
	}
	for _, email := range bad {
		t.Run(email, func(t *testing.T) {
			svc, _ := newService(t, nil)
			sub := personaSubmission()
			sub["email"] = email

			_, err := svc.Create(context.Background(), sub)
			assert.ErrorIs(t, err, ErrInvalidEmailFormat)
			assert.Equal(t, "El formato del email no es válido", Message(err))
		})
	}
}

func TestCreate_ValidEmailShapes(t *testing.T) {
	good := []string{"ana@x.com", "first.last+tag@sub-domain.co", "a_b@x.co.uk"}
	for _, email := range good {
		svc, _ := newService(t, nil)
		sub := personaSubmission()
		sub["email"] = email

		_, err := svc.Create(context.Background(), sub)
		assert.NoError(t, err, email)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, st := newService(t, nil)

	_, err := svc.Create(context.Background(), personaSubmission())
	require.NoError(t, err)

	second := empresaSubmission()
	second["email"] = "ana@x.com"
	_, err = svc.Create(context.Background(), second)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, "Este email ya está registrado", Message(err))
	assert.Equal(t, 1, st.Count())
}

func TestCreate_UnknownUserType(t *testing.T) {
	sub := Submission{
		"name":     "Bo",
		"email":    "bo@x.com",
		"country":  "AR",
		"userType": "Estudiante",
	}

	svc, _ := newService(t, nil)
	u, err := svc.Create(context.Background(), sub)
	require.NoError(t, err, "lenient mode accepts unknown types without group fields")
	assert.Equal(t, models.UserType("Estudiante"), u.UserType)

	strict, _ := newService(t, &config.Config{StrictUserTypes: true})
	_, err = strict.Create(context.Background(), sub)
	assert.ErrorIs(t, err, ErrInvalidUserType)
}

func TestCreate_GroupFieldsOutsideRequiredGroupAreKept(t *testing.T) {
	t.Run("persona with company", func(t *testing.T) {
		svc, st := newService(t, nil)
		sub := personaSubmission()
		sub["company"] = "Side Gig SA"

		u, err := svc.Create(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, "Side Gig SA", u.Company)
		assert.Equal(t, "AI", u.InterestArea)

		stored, err := st.FindByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Side Gig SA", stored.Company)
	})

	t.Run("empresa with individual fields", func(t *testing.T) {
		svc, _ := newService(t, nil)
		sub := empresaSubmission()
		sub["toolsUsed"] = "zapier"

		u, err := svc.Create(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, "Acme SA", u.Company)
		assert.Equal(t, "zapier", u.ToolsUsed)
	})

	t.Run("unknown type keeps every group field", func(t *testing.T) {
		svc, _ := newService(t, nil)
		u, err := svc.Create(context.Background(), Submission{
			"name":               "Bo",
			"email":              "bo@x.com",
			"country":            "AR",
			"userType":           "Estudiante",
			"interestArea":       "AI",
			"toolsUsed":          "n8n",
			"projectDescription": "bot",
			"automationNeeds":    "reports",
		})
		require.NoError(t, err)
		assert.Equal(t, "AI", u.InterestArea)
		assert.Equal(t, "n8n", u.ToolsUsed)
		assert.Equal(t, "bot", u.ProjectDescription)
		assert.Equal(t, "reports", u.AutomationNeeds)
		assert.Empty(t, u.Extra)
	})
}

func TestCreate_ExtraFieldsKeptServerFieldsIgnored(t *testing.T) {
	svc, _ := newService(t, nil)
	sub := personaSubmission()
	sub["referral"] = "newsletter"
	sub["isVerified"] = true
	sub["_id"] = "attacker-chosen"
	sub["registrationDate"] = "1999-01-01"

	u, err := svc.Create(context.Background(), sub)
	require.NoError(t, err)

	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "attacker-chosen", u.ID)
	assert.Equal(t, map[string]any{"referral": "newsletter"}, u.Extra)
}

type failingStore struct {
	store.UserStore
	findErr   error
	insertErr error
	insertID  string
}

func (f *failingStore) FindByEmail(context.Context, string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return nil, store.ErrNotFound
}

func (f *failingStore) Insert(context.Context, *models.User) (string, error) {
	return f.insertID, f.insertErr
}

func (f *failingStore) FindByID(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func TestCreate_PersistenceErrors(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name  string
		store *failingStore
		want  error
	}{
		{"lookup fails", &failingStore{findErr: boom}, ErrPersistence},
		{"insert fails", &failingStore{insertErr: boom}, ErrPersistence},
		{"insert returns no id", &failingStore{}, ErrPersistence},
		{"insert hits unique index", &failingStore{insertErr: store.ErrDuplicate}, ErrDuplicateEmail},
		{"reload fails", &failingStore{insertID: "abc"}, ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(tt.store, &config.Config{})
			_, err := svc.Create(context.Background(), personaSubmission())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	svc := NewUserService(&failingStore{insertErr: boom}, &config.Config{})
	_, err := svc.Create(context.Background(), personaSubmission())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Error al crear el usuario", Message(err))
}

func TestGet(t *testing.T) {
	svc, _ := newService(t, nil)
	u, err := svc.Create(context.Background(), personaSubmission())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	got, err = svc.GetByEmail(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.GetByEmail(context.Background(), "missing@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMessage_BaseField(t *testing.T) {
	assert.Equal(t, "El campo country es requerido", Message(&FieldError{Field: "country"}))
	assert.Equal(t, "El campo userType no es válido", Message(ErrInvalidUserType))
}
