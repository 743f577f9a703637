package rfp

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
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
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Ingest(ctx context.Context, userID uuid.UUID, file *upload.File, rfpURL string) (*IngestResult, error) {
	args := m.Called(ctx, userID, file, rfpURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IngestResult), args.Error(1)
}

var testUserID = uuid.MustParse("3c0d8f7e-5b2a-4e61-9f3d-2a7b8c9d0e1f")

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(logger.Nop()))
	router.Use(func(c *gin.Context) {
		c.Set("user_id", testUserID)
	})
	router.POST("/rfp/upload", handler.Upload)
	return router
}

func multipartBody(t *testing.T, fileName, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("RFP body"))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUpload_File(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	bidID, jobID := uuid.New(), uuid.New()
	mockService.On("Ingest", mock.Anything, testUserID, mock.MatchedBy(func(f *upload.File) bool {
		return f != nil && f.Name == "rfp.pdf" && f.ContentType == "application/pdf"
	}), "").Return(&IngestResult{Bid: &domain.Bid{ID: bidID, Title: "rfp.pdf"}, BidID: bidID, JobID: &jobID}, nil)

	body, ct := multipartBody(t, "rfp.pdf", "application/pdf", nil)
	req := httptest.NewRequest(http.MethodPost, "/rfp/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, bidID.String(), resp["bidId"])
	assert.Equal(t, jobID.String(), resp["jobId"])
	mockService.AssertExpectations(t)
}

func TestUpload_URLOnly(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	bidID := uuid.New()
	mockService.On("Ingest", mock.Anything, testUserID, (*upload.File)(nil), "https://sam.gov/opp/1").
		Return(&IngestResult{Bid: &domain.Bid{ID: bidID}, BidID: bidID}, nil)

	body, ct := multipartBody(t, "", "", map[string]string{"rfpUrl": "https://sam.gov/opp/1"})
	req := httptest.NewRequest(http.MethodPost, "/rfp/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestUpload_ServiceError(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("Ingest", mock.Anything, testUserID, mock.Anything, "").
		Return(nil, errors.BadRequest("Unsupported file type. Upload a PDF, Word document, or plain text file.", nil))

	body, ct := multipartBody(t, "scan.png", "image/png", nil)
	req := httptest.NewRequest(http.MethodPost, "/rfp/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Unsupported file type. Upload a PDF, Word document, or plain text file."}`, w.Body.String())
}
