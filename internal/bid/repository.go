package bid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govbid/internal/domain"
)

// listOmit are the large text columns only the detail view needs.
var listOmit = []string{"raw_rfp_text", "executive_summary", "full_proposal"}

type BidRepository interface {
	Create(ctx context.Context, bid *domain.Bid) error
	ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) ([]domain.Bid, BidsMeta, error)
	FindOwned(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error)
	FindOwnedWithDetails(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error)
	UpdateFields(ctx context.Context, bidID, userID uuid.UUID, columns []string, values *domain.Bid) error
	Delete(ctx context.Context, bidID, userID uuid.UUID) error
	ListDocuments(ctx context.Context, bidID, userID uuid.UUID) ([]domain.BidDocument, error)
	ReplaceDocument(ctx context.Context, doc *domain.BidDocument, score func(categories []string) int) (int, error)
	ListComplianceItems(ctx context.Context, bidID uuid.UUID) ([]domain.ComplianceItem, error)
	ReplaceComplianceItems(ctx context.Context, bidID, userID uuid.UUID, items []domain.ComplianceItem) error
	MarkPaid(ctx context.Context, bidID, userID uuid.UUID, sessionID string, paidAt time.Time) (int64, error)
}

type BidRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) BidRepository {
	return &BidRepositoryImpl{db: db}
}

func (r *BidRepositoryImpl) Create(ctx context.Context, bid *domain.Bid) error {
	now := time.Now().UTC()
	bid.CreatedAt = now
	bid.UpdatedAt = now
	return r.db.WithContext(ctx).Create(bid).Error
}

type BidsMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

func (r *BidRepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) ([]domain.Bid, BidsMeta, error) {
	bids := []domain.Bid{}
	var totalRecords int64

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}

	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Bid{}).Scopes(scope).Count(&totalRecords).Error; err != nil {
		return bids, BidsMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := db.Omit(listOmit...).
		Scopes(scope).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&bids).Error

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))

	return bids, BidsMeta{
		Total:       totalRecords,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, err
}

func (r *BidRepositoryImpl) FindOwned(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", bidID, userID).
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepositoryImpl) FindOwnedWithDetails(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	err := r.db.WithContext(ctx).
		Preload("ComplianceItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("requirement_id ASC")
		}).
		Preload("Documents").
		Where("id = ? AND user_id = ?", bidID, userID).
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// UpdateFields writes exactly the given columns (plus updated_at) from values.
// Ownership columns are never part of columns.
func (r *BidRepositoryImpl) UpdateFields(ctx context.Context, bidID, userID uuid.UUID, columns []string, values *domain.Bid) error {
	values.UpdatedAt = time.Now().UTC()
	cols := append(append([]string{}, columns...), "updated_at")

	result := r.db.WithContext(ctx).
		Model(&domain.Bid{}).
		Where("id = ? AND user_id = ?", bidID, userID).
		Select(cols).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BidRepositoryImpl) Delete(ctx context.Context, bidID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", bidID, userID).Delete(&domain.Bid{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("bid_id = ?", bidID).Delete(&domain.ComplianceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bid_id = ?", bidID).Delete(&domain.BidDocument{}).Error; err != nil {
			return err
		}
		return tx.Where("bid_id = ?", bidID).Delete(&domain.PipelineJob{}).Error
	})
}

func (r *BidRepositoryImpl) ListDocuments(ctx context.Context, bidID, userID uuid.UUID) ([]domain.BidDocument, error) {
	docs := []domain.BidDocument{}
	err := r.db.WithContext(ctx).
		Where("bid_id = ? AND user_id = ?", bidID, userID).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// ReplaceDocument swaps the metadata row for (bid, category) and persists the
// score computed from the resulting category set, all in one transaction.
func (r *BidRepositoryImpl) ReplaceDocument(ctx context.Context, doc *domain.BidDocument, score func(categories []string) int) (int, error) {
	var pwin int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bid_id = ? AND doc_type = ? AND user_id = ?", doc.BidID, doc.DocType, doc.UserID).
			Delete(&domain.BidDocument{}).Error; err != nil {
			return err
		}

		doc.CreatedAt = time.Now().UTC()
		if err := tx.Create(doc).Error; err != nil {
			return err
		}

		var categories []string
		if err := tx.Model(&domain.BidDocument{}).
			Where("bid_id = ?", doc.BidID).
			Pluck("doc_type", &categories).Error; err != nil {
			return err
		}

		pwin = score(categories)
		return tx.Model(&domain.Bid{}).
			Where("id = ? AND user_id = ?", doc.BidID, doc.UserID).
			Updates(map[string]any{"pwin_score": pwin, "updated_at": time.Now().UTC()}).Error
	})
	return pwin, err
}

func (r *BidRepositoryImpl) ListComplianceItems(ctx context.Context, bidID uuid.UUID) ([]domain.ComplianceItem, error) {
	items := []domain.ComplianceItem{}
	err := r.db.WithContext(ctx).
		Where("bid_id = ?", bidID).
		Order("requirement_id ASC").
		Find(&items).Error
	return items, err
}

// ReplaceComplianceItems makes items the bid's full checklist, so a re-parse
// never accumulates duplicates.
func (r *BidRepositoryImpl) ReplaceComplianceItems(ctx context.Context, bidID, userID uuid.UUID, items []domain.ComplianceItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bid_id = ?", bidID).Delete(&domain.ComplianceItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		now := time.Now().UTC()
		for i := range items {
			items[i].ID = uuid.Nil
			items[i].BidID = bidID
			items[i].UserID = userID
			items[i].CreatedAt = now
		}
		return tx.Create(&items).Error
	})
}

// MarkPaid is scoped by both bid and user; it returns the number of rows changed.
func (r *BidRepositoryImpl) MarkPaid(ctx context.Context, bidID, userID uuid.UUID, sessionID string, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Bid{}).
		Where("id = ? AND user_id = ?", bidID, userID).
		Updates(map[string]any{
			"status":            domain.BidStatusInReview,
			"paid_at":           paidAt,
			"stripe_session_id": sessionID,
			"updated_at":        time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
