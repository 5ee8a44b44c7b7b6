package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

// buildWorkbook returns xlsx bytes holding rows on the first sheet
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// uploadRequest builds a multipart POST /upload carrying data under field
func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()
	router.UseEncodedPath()
	handler.RegisterRoutes(router)
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHandler_HandleUpload(t *testing.T) {
	workbook := buildWorkbook(t, [][]interface{}{
		{"name", "age"},
		{"A", "1"},
		{"B", "2"},
	})

	tests := []struct {
		name           string
		request        func(t *testing.T) *http.Request
		insertErr      error
		expectedStatus int
		expectedError  string
		expectedRows   int
	}{
		{
			name:           "valid workbook",
			request:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "rows.xlsx", workbook) },
			expectedStatus: http.StatusOK,
			expectedRows:   2,
		},
		{
			name:           "wrong field name",
			request:        func(t *testing.T) *http.Request { return uploadRequest(t, "upload", "rows.xlsx", workbook) },
			expectedStatus: http.StatusBadRequest,
			expectedError:  MsgNoFile,
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest("POST", "/upload", strings.NewReader(`{"name":"A"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  MsgNoFile,
		},
		{
			name:           "not a workbook",
			request:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "rows.txt", []byte("name,age\nA,1\n")) },
			expectedStatus: http.StatusInternalServerError,
			expectedError:  MsgInternalError,
		},
		{
			name:           "insert fails",
			request:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "rows.xlsx", workbook) },
			insertErr:      errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  MsgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := NewMockDocumentStore()
			if tt.insertErr != nil {
				mockStore.FailOn("InsertMany", tt.insertErr)
			}
			router := newRouter(NewHandler(mockStore))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.request(t))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, w))
				assert.Equal(t, 0, mockStore.GetDocumentCount())
				return
			}

			var resp DataResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Data, tt.expectedRows)
			assert.Equal(t, 1, mockStore.GetInsertCalls())
			assert.Equal(t, tt.expectedRows, mockStore.GetDocumentCount())
		})
	}
}

func TestHandler_HandleUpload_EchoesRows(t *testing.T) {
	mockStore := NewMockDocumentStore()
	router := newRouter(NewHandler(mockStore))

	workbook := buildWorkbook(t, [][]interface{}{
		{"name", "age"},
		{"A", "1"},
		{"B", "2"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "file", "rows.xlsx", workbook))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"name":"A","age":"1"},{"name":"B","age":"2"}]}`, w.Body.String())
}

func TestHandler_HandleUpload_HeaderOnlyWorkbook(t *testing.T) {
	mockStore := NewMockDocumentStore()
	router := newRouter(NewHandler(mockStore))

	workbook := buildWorkbook(t, [][]interface{}{{"name", "age"}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "file", "rows.xlsx", workbook))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgInternalError, decodeError(t, w))
}

func TestHandler_HandleUpload_Archive(t *testing.T) {
	workbook := buildWorkbook(t, [][]interface{}{{"name"}, {"A"}})

	t.Run("archives after insert", func(t *testing.T) {
		archiver := NewMockArchiver(nil)
		router := newRouter(NewHandler(NewMockDocumentStore(), WithArchiver(archiver)))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, "file", "rows.xlsx", workbook))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"rows.xlsx"}, archiver.Archived)
	})

	t.Run("archive failure does not fail upload", func(t *testing.T) {
		mockStore := NewMockDocumentStore()
		archiver := NewMockArchiver(errors.New("bucket gone"))
		router := newRouter(NewHandler(mockStore, WithArchiver(archiver)))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, "file", "rows.xlsx", workbook))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, mockStore.GetDocumentCount())
	})

	t.Run("no archive when insert fails", func(t *testing.T) {
		mockStore := NewMockDocumentStore()
		mockStore.FailOn("InsertMany", errors.New("down"))
		archiver := NewMockArchiver(nil)
		router := newRouter(NewHandler(mockStore, WithArchiver(archiver)))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, "file", "rows.xlsx", workbook))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, archiver.Archived)
	})
}

func TestHandler_HandleListData(t *testing.T) {
	t.Run("returns stored documents", func(t *testing.T) {
		mockStore := NewMockDocumentStore(
			domain.Document{"name": "A"},
			domain.Document{"name": "B"},
		)
		router := newRouter(NewHandler(mockStore))

		req := httptest.NewRequest("GET", "/data", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp DataResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "A", resp.Data[0]["name"])
		assert.Equal(t, "1", resp.Data[0][domain.IDField])
		assert.Equal(t, 1, mockStore.GetFindAllCalls())
	})

	t.Run("empty store", func(t *testing.T) {
		router := newRouter(NewHandler(NewMockDocumentStore()))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/data", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		mockStore := NewMockDocumentStore()
		mockStore.FailOn("FindAll", errors.New("timeout"))
		router := newRouter(NewHandler(mockStore))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/data", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, MsgInternalError, decodeError(t, w))
	})
}

func TestHandler_HandleSearch(t *testing.T) {
	seed := []domain.Document{
		{"name": "Alice", "city": "Paris"},
		{"name": "Bob", "city": "Lyon"},
		{"name": "alice", "city": "Rome"},
		{"name": "Carol", "age": float64(30)},
	}

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedNames  []string
		expectedError  string
		expectFindAny  bool
	}{
		{
			name:           "substring rematches exact values",
			path:           "/search/ali",
			expectedStatus: http.StatusOK,
			expectedNames:  []string{"Alice", "alice"},
			expectFindAny:  true,
		},
		{
			name:           "case insensitive",
			path:           "/search/LYON",
			expectedStatus: http.StatusOK,
			expectedNames:  []string{"Bob"},
			expectFindAny:  true,
		},
		{
			name:           "numbers are not searched",
			path:           "/search/30",
			expectedStatus: http.StatusOK,
			expectedNames:  []string{},
		},
		{
			name:           "no match",
			path:           "/search/zzz",
			expectedStatus: http.StatusOK,
			expectedNames:  []string{},
		},
		{
			name:           "empty term",
			path:           "/search/",
			expectedStatus: http.StatusBadRequest,
			expectedError:  MsgSearchTermReq,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := NewMockDocumentStore(seed...)
			router := newRouter(NewHandler(mockStore))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, w))
				assert.Equal(t, 0, mockStore.GetFindAllCalls())
				return
			}

			var results []domain.Document
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
			names := make([]string, 0, len(results))
			for _, doc := range results {
				names = append(names, doc["name"].(string))
			}
			assert.Equal(t, tt.expectedNames, names)
			assert.Equal(t, 1, mockStore.GetFindAllCalls())
			if tt.expectFindAny {
				assert.Equal(t, 1, mockStore.GetFindAnyCalls())
			} else {
				assert.Equal(t, 0, mockStore.GetFindAnyCalls())
			}
		})
	}
}

func TestHandler_HandleSearch_ResponseIsBareArray(t *testing.T) {
	router := newRouter(NewHandler(NewMockDocumentStore()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/search/anything", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandler_HandleSearch_StoreFailure(t *testing.T) {
	for _, op := range []string{"FindAll", "FindAny"} {
		t.Run(op, func(t *testing.T) {
			mockStore := NewMockDocumentStore(domain.Document{"name": "Alice"})
			mockStore.FailOn(op, errors.New("boom"))
			router := newRouter(NewHandler(mockStore))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/search/ali", nil))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, MsgInternalError, decodeError(t, w))
		})
	}
}

func TestHandler_HandleSearch_PathVariable(t *testing.T) {
	mockStore := NewMockDocumentStore(domain.Document{"name": "Alice"})
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/search/ali", nil)
	req = mux.SetURLVars(req, map[string]string{"searchTerm": "ali"})
	w := httptest.NewRecorder()
	handler.HandleSearch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.Condition{domain.Eq("name", "Alice")}, mockStore.GetLastConditions())
}

func TestHandler_HandleSearch_EscapedTerm(t *testing.T) {
	seed := []domain.Document{
		{"path": "a/b"},
		{"path": "x"},
		{"name": "Zoé"},
	}

	tests := []struct {
		name          string
		path          string
		expectedField string
		expectedValue string
	}{
		{name: "encoded slash", path: "/search/a%2Fb", expectedField: "path", expectedValue: "a/b"},
		{name: "encoded utf-8", path: "/search/%C3%A9", expectedField: "name", expectedValue: "Zoé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := NewMockDocumentStore(seed...)
			router := newRouter(NewHandler(mockStore))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			var results []domain.Document
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
			require.Len(t, results, 1)
			assert.Equal(t, tt.expectedValue, results[0][tt.expectedField])
		})
	}
}

func TestHandler_HandleSearch_InvalidEscape(t *testing.T) {
	mockStore := NewMockDocumentStore(domain.Document{"name": "Alice"})
	handler := NewHandler(mockStore)

	req := httptest.NewRequest("GET", "/search/x", nil)
	req = mux.SetURLVars(req, map[string]string{"searchTerm": "%zz"})
	w := httptest.NewRecorder()
	handler.HandleSearch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgSearchTermReq, decodeError(t, w))
	assert.Equal(t, 0, mockStore.GetFindAllCalls())
}

func TestHandler_HandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := newRouter(NewHandler(NewMockDocumentStore()))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"healthy","message":"sheetstore is running"}`, w.Body.String())
	})

	t.Run("store down", func(t *testing.T) {
		mockStore := NewMockDocumentStore()
		mockStore.FailOn("Ping", errors.New("no route to host"))
		router := newRouter(NewHandler(mockStore))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, MsgStoreUnhealthy, decodeError(t, w))
	})
}
