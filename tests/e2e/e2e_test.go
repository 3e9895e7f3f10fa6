package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("FILEDROP_BASE_URL")
	if url == "" {
		t.Skip("FILEDROP_BASE_URL not set; skipping e2e tests")
	}
	return strings.TrimRight(url, "/")
}

func uploadFile(t *testing.T, client *http.Client, base, filename, contentType string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest("POST", base+"/api/files/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

type fileRecord struct {
	ID           string `json:"_id"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

func TestFileWorkflow(t *testing.T) {
	base := baseURL(t)
	client := &http.Client{Timeout: 30 * time.Second}
	content := []byte("0123456789")

	// 1. Загрузка
	resp := uploadFile(t, client, base, "note.txt", "text/plain", content)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created fileRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "note.txt", created.OriginalName)
	assert.EqualValues(t, len(content), created.Size)

	// 2. Список: новая запись первой
	resp, err := client.Get(base + "/api/files")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listResp struct {
		Success bool         `json:"success"`
		Files   []fileRecord `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
	resp.Body.Close()
	require.NotEmpty(t, listResp.Files)
	assert.Equal(t, created.ID, listResp.Files[0].ID)

	// 3. Просмотр
	resp, err = client.Get(base + "/api/files/view/" + created.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, body)

	// 4. Скачивание
	resp, err = client.Get(base + "/api/files/download/" + created.ID)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, body)
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "note.txt", params["filename"])
}

func TestRejectedUploadAndUnknownID(t *testing.T) {
	base := baseURL(t)
	client := &http.Client{Timeout: 30 * time.Second}

	resp := uploadFile(t, client, base, "setup.exe", "application/x-msdownload", []byte("MZ"))
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, err := client.Get(base + "/api/files/view/bogus-id")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
