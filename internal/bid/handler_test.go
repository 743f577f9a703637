package bid

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"govbid/internal/domain"
	"govbid/internal/errors"
	"govbid/internal/logger"
	"govbid/internal/middleware"
	"govbid/internal/upload"
	"govbid/internal/utils"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateBid(ctx context.Context, userID uuid.UUID, input map[string]any) (*domain.Bid, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bid), args.Error(1)
}

func (m *MockService) ListBids(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) (*PaginatedBids, error) {
	args := m.Called(ctx, userID, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaginatedBids), args.Error(1)
}

func (m *MockService) GetBid(ctx context.Context, bidID, userID uuid.UUID) (*domain.Bid, error) {
	args := m.Called(ctx, bidID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bid), args.Error(1)
}

func (m *MockService) UpdateBid(ctx context.Context, bidID, userID uuid.UUID, input map[string]any) (*domain.Bid, error) {
	args := m.Called(ctx, bidID, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bid), args.Error(1)
}

func (m *MockService) DeleteBid(ctx context.Context, bidID, userID uuid.UUID) error {
	args := m.Called(ctx, bidID, userID)
	return args.Error(0)
}

func (m *MockService) ListDocuments(ctx context.Context, bidID, userID uuid.UUID) ([]domain.BidDocument, error) {
	args := m.Called(ctx, bidID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BidDocument), args.Error(1)
}

func (m *MockService) UploadDocument(ctx context.Context, bidID, userID uuid.UUID, docType string, file *upload.File) (*domain.BidDocument, error) {
	args := m.Called(ctx, bidID, userID, docType, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BidDocument), args.Error(1)
}

var testUserID = uuid.MustParse("6f1e2d3c-4b5a-4978-8695-a4b3c2d1e0f9")

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	_ = utils.RegisterValidators()
	router := gin.New()
	router.Use(middleware.ErrorHandler(logger.Nop()))
	router.Use(func(c *gin.Context) {
		c.Set("user_id", testUserID)
	})
	router.GET("/bids", handler.List)
	router.POST("/bids", handler.Create)
	router.GET("/bids/:id", handler.Show)
	router.PATCH("/bids/:id", handler.Update)
	router.DELETE("/bids/:id", handler.Delete)
	router.GET("/bids/:id/documents", handler.ListDocuments)
	router.POST("/bids/:id/documents", handler.UploadDocument)
	return router
}

func TestCreateBid_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	created := &domain.Bid{ID: uuid.New(), UserID: testUserID, Title: "Cloud Migration", Status: "draft", PWinScore: 20}
	mockService.On("CreateBid", mock.Anything, testUserID, mock.MatchedBy(func(in map[string]any) bool {
		return in["title"] == "Cloud Migration"
	})).Return(created, nil)

	body, _ := json.Marshal(map[string]any{"title": "Cloud Migration", "pwin_score": 99})
	req := httptest.NewRequest("POST", "/bids", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var got domain.Bid
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	mockService.AssertExpectations(t)
}

func TestCreateBid_MalformedJSON(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	req := httptest.NewRequest("POST", "/bids", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateBid", mock.Anything, mock.Anything, mock.Anything)
}

func TestBidRoutes_InvalidID(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	for _, tc := range []struct{ method, path string }{
		{"GET", "/bids/123"},
		{"PATCH", "/bids/not-a-uuid"},
		{"DELETE", "/bids/6f1e2d3c4b5a49788695a4b3c2d1e0f9"},
		{"GET", "/bids/xyz/documents"},
		{"POST", "/bids/xyz/documents"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString("{}"))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Invalid bid ID"}`, w.Body.String())
		})
	}
	mockService.AssertExpectations(t)
}

func TestShowBid_NotFound(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	bidID := uuid.New()
	mockService.On("GetBid", mock.Anything, bidID, testUserID).
		Return(nil, errors.NotFound("Bid not found", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/bids/"+bidID.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Bid not found"}`, w.Body.String())
}

func TestListBids_PassesPaginationAndFilter(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("ListBids", mock.Anything, testUserID, ListFilter{Status: "won"}, 2, 5).
		Return(&PaginatedBids{Data: []domain.Bid{}, Meta: BidsMeta{CurrentPage: 2, PerPage: 5}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/bids?page=2&per_page=5&status=won", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestListBids_InvalidStatusFilter(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/bids?status=paid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "ListBids")
}

func TestDeleteBid_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	bidID := uuid.New()
	mockService.On("DeleteBid", mock.Anything, bidID, testUserID).Return(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/bids/"+bidID.String(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestUploadDocument_Multipart(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	bidID := uuid.New()
	mockService.On("UploadDocument", mock.Anything, bidID, testUserID, "past-performance",
		mock.MatchedBy(func(f *upload.File) bool {
			return f != nil && f.Name == "pp.pdf" && f.ContentType == "application/pdf"
		})).
		Return(&domain.BidDocument{ID: uuid.New(), BidID: bidID, DocType: "past-performance"}, nil)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("docType", "past-performance"))
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="pp.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/bids/"+bidID.String()+"/documents", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestUploadDocument_MissingFilePassesNil(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	bidID := uuid.New()
	mockService.On("UploadDocument", mock.Anything, bidID, testUserID, "", (*upload.File)(nil)).
		Return(nil, errors.BadRequest("Missing file or docType", nil))

	req := httptest.NewRequest("POST", "/bids/"+bidID.String()+"/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing file or docType"}`, w.Body.String())
}
