package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/fieldservice-booking/services/technician-service/internal/domain"
)

type TechnicianRepo struct{ db *gorm.DB }

func NewTechnicianRepo(db *gorm.DB) *TechnicianRepo {
	return &TechnicianRepo{db: db}
}

func (r *TechnicianRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Technician{})
}

// MarkBusy is a create-or-update: a technician seen for the first time is
// created and immediately set BUSY, so a record always exists after first
// assignment. A single upsert keeps the lazy creation race-free.
func (r *TechnicianRepo) MarkBusy(ctx context.Context, id string) (*domain.Technician, error) {
	t := domain.Technician{ID: id, Status: domain.Busy}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"status": domain.Busy}),
	}).Create(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkAvailable requires an existing record. Absence here is a genuine
// inconsistency (the technician was never marked busy) and is surfaced,
// not swallowed.
func (r *TechnicianRepo) MarkAvailable(ctx context.Context, id string) (*domain.Technician, error) {
	res := r.db.WithContext(ctx).Model(&domain.Technician{}).
		Where("id = ?", id).
		Update("status", domain.Available)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrTechnicianNotFound
	}
	return r.ByID(ctx, id)
}

func (r *TechnicianRepo) ByID(ctx context.Context, id string) (*domain.Technician, error) {
	var t domain.Technician
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTechnicianNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TechnicianRepo) List(ctx context.Context, page, size int32) ([]domain.Technician, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	var out []domain.Technician
	err := r.db.WithContext(ctx).Order("id ASC").
		Limit(int(size)).Offset(int(page * size)).Find(&out).Error
	return out, err
}
