package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/adfharrison1/sheetstore/pkg/domain"
	"github.com/adfharrison1/sheetstore/pkg/storage/local"
)

func workbook(t *testing.T, rows [][]interface{}) []byte {
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

func upload(t *testing.T, url string, data []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "rows.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(url+"/upload", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := local.New(domain.NewCollection("db", "rows"), local.WithDataDir(t.TempDir()))
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Close(context.Background()) })

	ts := httptest.NewServer(NewServer(store).Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_UploadListSearch(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts.URL, workbook(t, [][]interface{}{
		{"name", "city"},
		{"Alice", "Paris"},
		{"Bob", "Lyon"},
		{"alice", "Rome"},
	}))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uploaded struct {
		Data []domain.Document `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	require.Len(t, uploaded.Data, 3)
	assert.NotContains(t, uploaded.Data[0], domain.IDField)

	listResp, err := http.Get(ts.URL + "/data")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listed struct {
		Data []domain.Document `json:"data"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listed))
	require.Len(t, listed.Data, 3)
	for _, doc := range listed.Data {
		assert.NotEmpty(t, doc[domain.IDField])
	}

	searchResp, err := http.Get(ts.URL + "/search/ALI")
	require.NoError(t, err)
	defer searchResp.Body.Close()
	require.Equal(t, http.StatusOK, searchResp.StatusCode)

	var found []domain.Document
	require.NoError(t, json.NewDecoder(searchResp.Body).Decode(&found))
	require.Len(t, found, 2)
	assert.Equal(t, "Alice", found[0]["name"])
	assert.Equal(t, "alice", found[1]["name"])
}

func TestServer_SearchTermWithEncodedSlash(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts.URL, workbook(t, [][]interface{}{
		{"path"},
		{"a/b"},
		{"x"},
	}))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	searchResp, err := http.Get(ts.URL + "/search/a%2Fb")
	require.NoError(t, err)
	defer searchResp.Body.Close()
	require.Equal(t, http.StatusOK, searchResp.StatusCode)

	var found []domain.Document
	require.NoError(t, json.NewDecoder(searchResp.Body).Decode(&found))
	require.Len(t, found, 1)
	assert.Equal(t, "a/b", found[0]["path"])
}

func TestServer_ErrorResponses(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "upload without file", method: "POST", path: "/upload", expectedStatus: http.StatusBadRequest},
		{name: "empty search term", method: "GET", path: "/search/", expectedStatus: http.StatusBadRequest},
		{name: "unknown route", method: "GET", path: "/collections", expectedStatus: http.StatusNotFound},
		{name: "health", method: "GET", path: "/health", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestRequestLoggerMiddleware_RecordsStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	handler := requestLoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	rec.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, rec.status)
}
