package repository

import (
	"context"
	"errors"

	"payment-sync-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository is the persistence surface the sync engine needs:
// payment lookup/update plus the durable event cursor.
type PaymentRepository interface {
	GetPaymentByTransferID(ctx context.Context, transferID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status models.Status, billID uuid.UUID, errorMessage string) error
	GetLastSyncNum(ctx context.Context) (int64, bool, error)
	SetLastSyncNum(ctx context.Context, num int64) error
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

// GetPaymentByTransferID returns (nil, nil) when no payment matches, so
// callers can treat "unknown transfer" as a normal outcome rather than an
// error.
func (r *gormPaymentRepo) GetPaymentByTransferID(ctx context.Context, transferID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("transfer_id = ?", transferID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status models.Status, billID uuid.UUID, errorMessage string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND bill_id = ?", paymentID, billID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
		}).Error
}

// GetLastSyncNum returns the stored cursor; the bool is false when the
// service has never synced.
func (r *gormPaymentRepo) GetLastSyncNum(ctx context.Context) (int64, bool, error) {
	var cursor models.SyncCursor
	err := r.db.WithContext(ctx).Where("stream = ?", models.TransferEventStream).First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cursor.LastSyncNum, true, nil
}

func (r *gormPaymentRepo) SetLastSyncNum(ctx context.Context, num int64) error {
	cursor := models.SyncCursor{
		Stream:      models.TransferEventStream,
		LastSyncNum: num,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sync_num", "updated_at"}),
	}).Create(&cursor).Error
}
