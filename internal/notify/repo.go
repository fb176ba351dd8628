package notify

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/notifyd/internal/repo"
	"github.com/angelmondragon/notifyd/pkg/db/models"
	"github.com/angelmondragon/notifyd/pkg/pagination"
)

// Repository defines persistence operations for notification tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateEmail(ctx context.Context, e *models.EmailNotification) error
	CreateSMS(ctx context.Context, s *models.SmsNotification) error
	UpdateEmail(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateSMS(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindEmail(ctx context.Context, id uuid.UUID) (*models.EmailNotification, error)
	FindSMS(ctx context.Context, id uuid.UUID) (*models.SmsNotification, error)
	FindSMSBySid(ctx context.Context, sid string) (*models.SmsNotification, error)
	ListNotifications(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
}

type listNotificationsParams struct {
	NotifyableType string
	NotifyableID   string
	Limit          int
	Cursor         *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository builds a notifications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if base, ok := r.Bound(tx); ok {
		return &repository{Base: base}
	}
	return r
}

func (r *repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.DB(ctx).Omit("EmailNotifications", "SmsNotifications").Create(n).Error
}

func (r *repository) CreateEmail(ctx context.Context, e *models.EmailNotification) error {
	return r.DB(ctx).Create(e).Error
}

// CreateSMS inserts the SMS row together with its attachments.
func (r *repository) CreateSMS(ctx context.Context, s *models.SmsNotification) error {
	return r.DB(ctx).Create(s).Error
}

func (r *repository) UpdateEmail(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.EmailNotification{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) UpdateSMS(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.SmsNotification{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) FindEmail(ctx context.Context, id uuid.UUID) (*models.EmailNotification, error) {
	var email models.EmailNotification
	if err := r.DB(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *repository) FindSMS(ctx context.Context, id uuid.UUID) (*models.SmsNotification, error) {
	var sms models.SmsNotification
	err := r.DB(ctx).
		Preload("Attachments", orderByPosition).
		Where("id = ?", id).
		First(&sms).Error
	if err != nil {
		return nil, err
	}
	return &sms, nil
}

func (r *repository) FindSMSBySid(ctx context.Context, sid string) (*models.SmsNotification, error) {
	var sms models.SmsNotification
	if err := r.DB(ctx).Where("sid = ?", sid).First(&sms).Error; err != nil {
		return nil, err
	}
	return &sms, nil
}

// ListNotifications returns notifications for one host record, newest first.
func (r *repository) ListNotifications(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	query := r.DB(ctx).
		Preload("EmailNotifications", orderByCreated).
		Preload("SmsNotifications", orderByCreated).
		Preload("SmsNotifications.Attachments", orderByPosition).
		Where("notifyable_type = ? AND notifyable_id = ?", params.NotifyableType, params.NotifyableID)

	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func orderByCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
