package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/fieldservice-booking/services/billing-service/internal/domain"
)

type InvoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepo(db *gorm.DB) *InvoiceRepo {
	return &InvoiceRepo{db: db}
}

func (r *InvoiceRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Invoice{}, &domain.InvoiceItem{})
}

// CreateIfAbsent inserts inv unless an invoice for its booking already
// exists. The unique index on booking_id is the final arbiter: under a
// race both writers may pass the lookup, but only one insert lands; the
// loser's conflict is swallowed and the winner's row returned. The bool
// reports whether this call created the invoice.
func (r *InvoiceRepo) CreateIfAbsent(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, bool, error) {
	if existing, err := r.ByBookingID(ctx, inv.BookingID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrInvoiceNotFound) {
		return nil, false, err
	}

	items := inv.Items
	inv.Items = nil

	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "booking_id"}},
			DoNothing: true,
		}).Create(inv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race; the existing row wins
			return nil
		}
		created = true
		for i := range items {
			items[i].InvoiceID = inv.ID
		}
		if len(items) > 0 {
			return tx.Create(&items).Error
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := r.ByBookingID(ctx, inv.BookingID)
		return existing, false, err
	}
	inv.Items = items
	return inv, true, nil
}

func (r *InvoiceRepo) ByBookingID(ctx context.Context, bookingID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.WithContext(ctx).Preload("Items").
		First(&inv, "booking_id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// MarkPaid sets both statuses and stamps paid_at. Re-marking a paid
// invoice is allowed and overwrites the timestamp.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, bookingID string, at time.Time) (*domain.Invoice, error) {
	res := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]any{
			"invoice_status": domain.InvoicePaid,
			"payment_status": domain.PaymentPaid,
			"paid_at":        at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrInvoiceNotFound
	}
	return r.ByBookingID(ctx, bookingID)
}

func (r *InvoiceRepo) List(ctx context.Context, page, size int32, customerID string) ([]domain.Invoice, int64, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Invoice{})
	if customerID != "" {
		qb = qb.Where("customer_id = ?", customerID)
	}
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Invoice
	if err := qb.Preload("Items").Order("issued_at DESC").
		Limit(int(size)).Offset(int(page * size)).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
