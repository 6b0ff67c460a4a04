package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"size:255;not null"`
	Email    string    `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	Country  string    `gorm:"size:100;not null"`
	UserType string    `gorm:"size:50;not null"`

	Company            string `gorm:"size:255"`
	AutomationNeeds    string `gorm:"type:text"`
	InterestArea       string `gorm:"size:255"`
	ToolsUsed          string `gorm:"type:text"`
	ProjectDescription string `gorm:"type:text"`

	RegistrationDate time.Time      `gorm:"not null"`
	IsVerified       bool           `gorm:"not null;default:false"`
	Extra            datatypes.JSON `gorm:"type:jsonb"`
}

func (userRow) TableName() string { return "users" }

type systemLogRow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Timestamp time.Time      `gorm:"not null;index"`
	Level     string         `gorm:"size:10;not null;index"`
	Message   string         `gorm:"type:text"`
	RequestID string         `gorm:"size:64;index"`
	UserID    string         `gorm:"size:64"`
	Action    string         `gorm:"size:100"`
	Error     string         `gorm:"type:text"`
	Extra     datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	CreatedAt time.Time
}

func (systemLogRow) TableName() string { return "system_logs" }

// PostgresStore keeps registrants in a users table; extra submitted keys
// live in a jsonb column.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with gorm and migrates the tables it owns.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.AutoMigrate(&userRow{}, &systemLogRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	slog.Info("database connected")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return row.toModel()
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", uid).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return row.toModel()
}

func (s *PostgresStore) Insert(ctx context.Context, u *models.User) (string, error) {
	extra, err := marshalExtra(u.Extra)
	if err != nil {
		return "", err
	}

	row := userRow{
		ID:                 uuid.New(),
		Name:               u.Name,
		Email:              u.Email,
		Country:            u.Country,
		UserType:           string(u.UserType),
		Company:            u.Company,
		AutomationNeeds:    u.AutomationNeeds,
		InterestArea:       u.InterestArea,
		ToolsUsed:          u.ToolsUsed,
		ProjectDescription: u.ProjectDescription,
		RegistrationDate:   u.RegistrationDate,
		IsVerified:         u.IsVerified,
		Extra:              extra,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return row.ID.String(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) WriteLogs(ctx context.Context, entries []models.SystemLog) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]systemLogRow, 0, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			id = uuid.New()
		}
		extra, err := marshalExtra(e.Extra)
		if err != nil {
			extra = nil
		}
		if extra == nil {
			extra = datatypes.JSON("{}")
		}
		rows = append(rows, systemLogRow{
			ID:        id,
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Message:   e.Message,
			RequestID: e.RequestID,
			UserID:    e.UserID,
			Action:    e.Action,
			Error:     e.Error,
			Extra:     extra,
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 50).Error
}

func (s *PostgresStore) PruneLogs(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", before).Delete(&systemLogRow{})
	return result.RowsAffected, result.Error
}

func (r *userRow) toModel() (*models.User, error) {
	u := &models.User{
		ID:                 r.ID.String(),
		Name:               r.Name,
		Email:              r.Email,
		Country:            r.Country,
		UserType:           models.UserType(r.UserType),
		Company:            r.Company,
		AutomationNeeds:    r.AutomationNeeds,
		InterestArea:       r.InterestArea,
		ToolsUsed:          r.ToolsUsed,
		ProjectDescription: r.ProjectDescription,
		RegistrationDate:   r.RegistrationDate.UTC(),
		IsVerified:         r.IsVerified,
	}
	if len(r.Extra) > 0 {
		if err := json.Unmarshal(r.Extra, &u.Extra); err != nil {
			return nil, fmt.Errorf("failed to decode extra fields: %w", err)
		}
	}
	return u, nil
}

func marshalExtra(m map[string]any) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extra fields: %w", err)
	}
	return datatypes.JSON(b), nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
