package bid

import (
	"bytes"
	"context"
	"encoding/json"
	defError "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govbid/internal/domain"
	"govbid/internal/errors"
	"govbid/internal/logger"
	"govbid/internal/scoring"
	"govbid/internal/storage"
	"govbid/internal/upload"
	"govbid/internal/whitelist"
	"govbid/redis"
)

const documentLockTTL = 30 * time.Second

type Service interface {
	CreateBid(ctx context.Context, userID uuid.UUID, input map[string]any) (*domain.Bid, error)
	ListBids(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) (*PaginatedBids, error)
	GetBid(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error)
	UpdateBid(ctx context.Context, bidID, userID uuid.UUID, input map[string]any) (*domain.Bid, error)
	DeleteBid(ctx context.Context, bidID, userID uuid.UUID) error
	ListDocuments(ctx context.Context, bidID, userID uuid.UUID) ([]domain.BidDocument, error)
	UploadDocument(ctx context.Context, bidID, userID uuid.UUID, docType string, file *upload.File) (*domain.BidDocument, error)
}

// Locker serializes work on a key across processes.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type DefaultService struct {
	repository BidRepository
	store      storage.Store
	locker     Locker
	table      scoring.Table
	log        *logger.Logger
}

func NewService(repository BidRepository, store storage.Store, locker Locker, table scoring.Table, log *logger.Logger) Service {
	return &DefaultService{
		repository: repository,
		store:      store,
		locker:     locker,
		table:      table,
		log:        log.With("service", "BidService"),
	}
}

// ListFilter narrows the bid list.
type ListFilter struct {
	Status string `form:"status" binding:"omitempty,bidstatus"`
}

type PaginatedBids struct {
	Data []domain.Bid `json:"data"`
	Meta BidsMeta     `json:"meta"`
}

func (s *DefaultService) CreateBid(ctx context.Context, userID uuid.UUID, input map[string]any) (*domain.Bid, error) {
	fields := whitelist.Filter(input, whitelist.BidCreateFields)

	var bid domain.Bid
	if err := decodeFields(fields, &bid); err != nil {
		return nil, err
	}
	if bid.Status == "" {
		bid.Status = domain.BidStatusDraft
	}
	bid.UserID = userID
	bid.PWinScore = s.table.Score(nil)
	bid.ComplianceScore = 0

	if err := s.repository.Create(ctx, &bid); err != nil {
		return nil, errors.New(500, "Failed to create bid", err)
	}
	return &bid, nil
}

func (s *DefaultService) ListBids(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) (*PaginatedBids, error) {
	bids, meta, err := s.repository.ListByUser(ctx, userID, filter, page, pageSize)
	if err != nil {
		return nil, errors.New(500, "Failed to load bids", err)
	}
	return &PaginatedBids{Data: bids, Meta: meta}, nil
}

func (s *DefaultService) GetBid(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error) {
	bid, err := s.repository.FindOwnedWithDetails(ctx, bidID, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return bid, nil
}

func (s *DefaultService) UpdateBid(ctx context.Context, bidID, userID uuid.UUID, input map[string]any) (*domain.Bid, error) {
	fields := whitelist.Filter(input, whitelist.BidUpdateFields)

	var values domain.Bid
	if err := decodeFields(fields, &values); err != nil {
		return nil, err
	}

	if err := s.repository.UpdateFields(ctx, bidID, userID, whitelist.BidUpdateFields.Keys(fields), &values); err != nil {
		return nil, notFoundOr(err)
	}
	return s.GetBid(ctx, bidID, userID)
}

func (s *DefaultService) DeleteBid(ctx context.Context, bidID, userID uuid.UUID) error {
	if err := s.repository.Delete(ctx, bidID, userID); err != nil {
		return notFoundOr(err)
	}
	return nil
}

func (s *DefaultService) ListDocuments(ctx context.Context, bidID, userID uuid.UUID) ([]domain.BidDocument, error) {
	docs, err := s.repository.ListDocuments(ctx, bidID, userID)
	if err != nil {
		return nil, errors.New(500, "Failed to load documents", err)
	}
	return docs, nil
}

// UploadDocument stores a supporting document for one category, replacing
// any earlier one, and recomputes the bid's pWin score.
func (s *DefaultService) UploadDocument(ctx context.Context, bidID, userID uuid.UUID, docType string, file *upload.File) (*domain.BidDocument, error) {
	if _, err := s.repository.FindOwned(ctx, bidID, userID); err != nil {
		return nil, notFoundOr(err)
	}

	if file == nil || docType == "" {
		return nil, errors.BadRequest("Missing file or docType", nil)
	}
	if !slices.Contains(domain.DocTypes, docType) {
		return nil, errors.BadRequest("Invalid document type. Allowed: "+strings.Join(domain.DocTypes, ", "), nil)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	data, err := file.Read()
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("lock:bid:%s:documents", bidID), documentLockTTL)
	if err != nil {
		if defError.Is(err, redis.ErrLockTimeout) {
			return nil, errors.Conflict("Another upload for this bid is in progress", err)
		}
		return nil, errors.Internal(err)
	}
	defer unlock()

	key := fmt.Sprintf("%s/%s/%s.%s", userID, bidID, docType, file.Ext())
	if err := s.store.Upload(ctx, storage.BucketDocuments, key, bytes.NewReader(data), file.StoredContentType(data)); err != nil {
		return nil, errors.New(500, "Failed to upload document", err)
	}

	doc := &domain.BidDocument{
		BidID:    bidID,
		UserID:   userID,
		DocType:  docType,
		FilePath: key,
		FileName: file.Name,
	}
	pwin, err := s.repository.ReplaceDocument(ctx, doc, s.table.Score)
	if err != nil {
		return nil, errors.New(500, "Failed to save document record", err)
	}

	s.log.Info("document uploaded", "bid_id", bidID, "doc_type", docType, "pwin_score", pwin)
	return doc, nil
}

func notFoundOr(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Bid not found", err)
	}
	return err
}

// decodeFields maps whitelisted JSON keys onto the bid struct so values get
// type-checked before they reach the database.
func decodeFields(fields map[string]any, dst *domain.Bid) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.BadRequest("Invalid field value", err)
	}
	if status, ok := fields["status"]; ok && !slices.Contains(domain.BidStatuses, dst.Status) {
		return errors.BadRequest(fmt.Sprintf("Invalid status %v. Allowed: %s", status, strings.Join(domain.BidStatuses, ", ")), nil)
	}
	return nil
}
