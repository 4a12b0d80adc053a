package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrUnknownColumn = errors.New("column cannot be updated")
)

// Columns of forms that UpdateFormColumns may write. Identity, slug and
// ownership never change after creation.
const (
	ColumnProgress     = "progress"
	ColumnStatus       = "status"
	ColumnData         = "data"
	ColumnPassword     = "password"
	ColumnIsDisabled   = "is_disabled"
	ColumnLastReminder = "last_reminder"
)

var updatableColumns = map[string]bool{
	ColumnProgress:     true,
	ColumnStatus:       true,
	ColumnData:         true,
	ColumnPassword:     true,
	ColumnIsDisabled:   true,
	ColumnLastReminder: true,
}

func checkColumns(cols map[string]interface{}) error {
	for name := range cols {
		if !updatableColumns[name] {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
	}
	return nil
}

// validID reports whether id can be a forms primary key. Postgres rejects
// anything else with a type error instead of an empty result.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type Repository interface {
	CreateForm(ctx context.Context, form *Form) error
	GetFormByID(ctx context.Context, id string) (*Form, error)
	GetFormBySlug(ctx context.Context, slug string) (*Form, error)
	ListForms(ctx context.Context, createdBy string) ([]Form, error)
	// UpdateFormColumns writes only the named columns of one form.
	UpdateFormColumns(ctx context.Context, id string, cols map[string]interface{}) error
	DeleteForm(ctx context.Context, id string) error

	CreateSection(ctx context.Context, section *FormSection) error
	GetSectionByShareID(ctx context.Context, shareID string) (*FormSection, error)

	GetWebhookSetting(ctx context.Context, createdBy string) (*WebhookSetting, error)
	SaveWebhookSetting(ctx context.Context, setting *WebhookSetting) error

	Close() error
}

type PoolOptions struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository(dsn string, opts PoolOptions) (*PostgresRepository, error) {
	logLevel := opts.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&Form{}, &FormSection{}, &WebhookSetting{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return NewRepository(db), nil
}

// NewRepository wraps an already opened connection without migrating.
func NewRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateForm(ctx context.Context, form *Form) error {
	if err := r.db.WithContext(ctx).Create(form).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetFormByID(ctx context.Context, id string) (*Form, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var form Form
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&form).Error; err != nil {
		return nil, notFound(err)
	}
	return &form, nil
}

func (r *PostgresRepository) GetFormBySlug(ctx context.Context, slug string) (*Form, error) {
	var form Form
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&form).Error; err != nil {
		return nil, notFound(err)
	}
	return &form, nil
}

// ListForms returns the forms owned by createdBy, newest first. An empty
// createdBy lists every form.
func (r *PostgresRepository) ListForms(ctx context.Context, createdBy string) ([]Form, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if createdBy != "" {
		q = q.Where("created_by = ?", createdBy)
	}

	var forms []Form
	if err := q.Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

func (r *PostgresRepository) UpdateFormColumns(ctx context.Context, id string, cols map[string]interface{}) error {
	if err := checkColumns(cols); err != nil {
		return err
	}
	if !validID(id) {
		return ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&Form{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteForm(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", id).Delete(&FormSection{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Form{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) CreateSection(ctx context.Context, section *FormSection) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *PostgresRepository) GetSectionByShareID(ctx context.Context, shareID string) (*FormSection, error) {
	var section FormSection
	if err := r.db.WithContext(ctx).Where("share_id = ?", shareID).First(&section).Error; err != nil {
		return nil, notFound(err)
	}
	return &section, nil
}

func (r *PostgresRepository) GetWebhookSetting(ctx context.Context, createdBy string) (*WebhookSetting, error) {
	var setting WebhookSetting
	if err := r.db.WithContext(ctx).Where("created_by = ?", createdBy).First(&setting).Error; err != nil {
		return nil, notFound(err)
	}
	return &setting, nil
}

func (r *PostgresRepository) SaveWebhookSetting(ctx context.Context, setting *WebhookSetting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
