package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filevault/internal/apperr"
	"filevault/internal/http/middleware"
	"filevault/internal/model"
	serviceMocks "filevault/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testHarness struct {
	app     *fiber.App
	fileSvc *serviceMocks.MockFileService
	verSvc  *serviceMocks.MockVersionService
	dbMock  sqlmock.Sqlmock
}

func newTestApp(t *testing.T) *testHarness {
	t.Helper()
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &testHarness{
		fileSvc: new(serviceMocks.MockFileService),
		verSvc:  new(serviceMocks.MockVersionService),
		dbMock:  dbMock,
	}
	h.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	h.app.Use(middleware.RequestID())
	RegisterRoutes(h.app, db, h.fileSvc, h.verSvc)
	return h
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestApp(t)

	t.Run("healthy", func(t *testing.T) {
		h.dbMock.ExpectPing()

		resp, _ := h.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("liveness", func(t *testing.T) {
		resp, _ := h.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestUploadFile(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h := newTestApp(t)
		h.fileSvc.On("Upload", mock.Anything, mock.Anything, "notes.txt", mock.Anything, int64(5), "u1").
			Return(&model.File{ID: "f1", OwnerID: "u1", Filename: "notes.txt"}, nil)

		body, ct := multipartBody(t, "file", "notes.txt", "hello", nil)
		req := httptest.NewRequest(http.MethodPost, "/files", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserIDHeader, "u1")

		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		h.fileSvc.AssertExpectations(t)
	})

	t.Run("missing user header", func(t *testing.T) {
		h := newTestApp(t)
		body, ct := multipartBody(t, "file", "notes.txt", "hello", nil)
		req := httptest.NewRequest(http.MethodPost, "/files", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "USER_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("quota exceeded maps to 413", func(t *testing.T) {
		h := newTestApp(t)
		h.fileSvc.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.New(apperr.QuotaExceeded, "not enough quota for 5 bytes"))

		body, ct := multipartBody(t, "file", "notes.txt", "hello", nil)
		req := httptest.NewRequest(http.MethodPost, "/files", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserIDHeader, "u1")

		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, "QUOTA_EXCEEDED", decodeError(t, resp).Error.Code)
	})
}

func TestGetFile(t *testing.T) {
	fid := uuid.New().String()

	t.Run("found", func(t *testing.T) {
		h := newTestApp(t)
		h.fileSvc.On("Get", mock.Anything, fid, "u1").
			Return(&model.File{ID: fid, OwnerID: "u1"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/files/"+fid, nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestApp(t)
		h.fileSvc.On("Get", mock.Anything, fid, "u1").
			Return(nil, apperr.New(apperr.NotFound, "file not found"))

		req := httptest.NewRequest(http.MethodGet, "/files/"+fid, nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("forbidden", func(t *testing.T) {
		h := newTestApp(t)
		h.fileSvc.On("Get", mock.Anything, fid, "u2").
			Return(nil, apperr.New(apperr.Forbidden, "file belongs to another user"))

		req := httptest.NewRequest(http.MethodGet, "/files/"+fid, nil)
		req.Header.Set(middleware.UserIDHeader, "u2")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		h := newTestApp(t)
		req := httptest.NewRequest(http.MethodGet, "/files/not-a-uuid", nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})
}

func TestCreateVersion(t *testing.T) {
	fid := uuid.New().String()

	t.Run("created with comment", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("CreateVersion", mock.Anything, fid, mock.Anything, int64(5), "before refactor", "u1").
			Return(&model.Version{ID: "v1", FileID: fid, Seq: 1}, nil)

		body, ct := multipartBody(t, "file", "notes.txt", "hello", map[string]string{"comment": "before refactor"})
		req := httptest.NewRequest(http.MethodPost, "/files/"+fid+"/versions", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserIDHeader, "u1")

		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var v model.Version
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
		assert.Equal(t, 1, v.Seq)
		h.verSvc.AssertExpectations(t)
	})

	t.Run("conflict maps to 409", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("CreateVersion", mock.Anything, fid, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.New(apperr.Conflict, "too many concurrent writers, retry the operation"))

		body, ct := multipartBody(t, "file", "notes.txt", "hello", nil)
		req := httptest.NewRequest(http.MethodPost, "/files/"+fid+"/versions", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserIDHeader, "u1")

		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("storage failure maps to 502", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("CreateVersion", mock.Anything, fid, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.New(apperr.StorageWrite, "write content"))

		body, ct := multipartBody(t, "file", "notes.txt", "hello", nil)
		req := httptest.NewRequest(http.MethodPost, "/files/"+fid+"/versions", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserIDHeader, "u1")

		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestListVersions(t *testing.T) {
	fid := uuid.New().String()
	h := newTestApp(t)
	h.verSvc.On("ListVersions", mock.Anything, fid, "u1").
		Return([]model.Version{{ID: "v2", Seq: 2}, {ID: "v1", Seq: 1}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/files/"+fid+"/versions", nil)
	req.Header.Set(middleware.UserIDHeader, "u1")
	resp, _ := h.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data  []model.Version `json:"data"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Total)
}

func TestRestoreVersion(t *testing.T) {
	fid := uuid.New().String()
	vid := uuid.New().String()

	t.Run("restored", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("RestoreVersion", mock.Anything, fid, vid, "u1").
			Return(&model.Version{ID: "v9", FileID: fid, Seq: 9, Comment: "restoring to version 2"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/files/"+fid+"/versions/"+vid+"/restore", nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		h.verSvc.AssertExpectations(t)
	})

	t.Run("version of another file maps to 400", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("RestoreVersion", mock.Anything, fid, vid, "u1").
			Return(nil, apperr.New(apperr.BadRequest, "version does not belong to this file"))

		req := httptest.NewRequest(http.MethodPost, "/files/"+fid+"/versions/"+vid+"/restore", nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, resp).Error.Code)
	})
}

func TestPresignDownload(t *testing.T) {
	fid := uuid.New().String()

	t.Run("signed url returned", func(t *testing.T) {
		h := newTestApp(t)
		h.fileSvc.On("PresignDownload", mock.Anything, fid, "u1", 15*time.Minute).
			Return("https://minio.local/files/blob?sig=abc", nil)

		req := httptest.NewRequest(http.MethodGet, "/files/"+fid+"/presign", nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body["url"], "sig=abc")
		assert.Equal(t, float64(900), body["expires_in"])
	})

	t.Run("expiry out of range", func(t *testing.T) {
		h := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/files/"+fid+"/presign?expiry_sec=999999", nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_EXPIRY", decodeError(t, resp).Error.Code)
	})
}

func TestDeleteVersion(t *testing.T) {
	vid := uuid.New().String()

	t.Run("deleted", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("DeleteVersion", mock.Anything, vid, "u1").Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/versions/"+vid, nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("DeleteVersion", mock.Anything, vid, "u1").
			Return(apperr.New(apperr.NotFound, "version not found"))

		req := httptest.NewRequest(http.MethodDelete, "/versions/"+vid, nil)
		req.Header.Set(middleware.UserIDHeader, "u1")
		resp, _ := h.app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestQuota(t *testing.T) {
	h := newTestApp(t)
	h.fileSvc.On("Quota", mock.Anything, "u1").
		Return(&model.QuotaUsage{UserID: "u1", Quota: 100, Used: 40}, nil)

	req := httptest.NewRequest(http.MethodGet, "/quota", nil)
	req.Header.Set(middleware.UserIDHeader, "u1")
	resp, _ := h.app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var usage model.QuotaUsage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&usage))
	assert.Equal(t, int64(40), usage.Used)
}

func TestRetentionSweep(t *testing.T) {
	t.Run("runs and reports count", func(t *testing.T) {
		h := newTestApp(t)
		h.verSvc.On("CleanupOldVersions", mock.Anything, 5).Return(3, nil)

		resp, _ := h.app.Test(httptest.NewRequest(http.MethodPost, "/admin/retention/sweep?max=5", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 3, body["deleted"])
	})

	t.Run("invalid max", func(t *testing.T) {
		h := newTestApp(t)

		resp, _ := h.app.Test(httptest.NewRequest(http.MethodPost, "/admin/retention/sweep?max=abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_MAX", decodeError(t, resp).Error.Code)
	})
}
