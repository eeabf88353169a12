package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/foomo/reportserver/pkg/handler"
	"github.com/foomo/reportserver/pkg/storage"
	"github.com/foomo/reportserver/pkg/storage/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
	"go.uber.org/zap/zaptest"
)

const reportPath = "WEB-INF/junit/junit.xml"

func newDeploymentRoot(t *testing.T, report *string) *storage.FilesystemStorage {
	t.Helper()
	dir := t.TempDir()
	if report != nil {
		p := filepath.Join(dir, filepath.FromSlash(reportPath))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
		require.NoError(t, os.WriteFile(p, []byte(*report), 0o600))
	}
	s, err := storage.NewFilesystemStorage(dir)
	require.NoError(t, err)
	return s
}

func getReport(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/junit.xml", nil))
	return w
}

func ptr(v string) *string {
	return &v
}

func TestReport_Found(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite>\n</testsuite>\n")))

	w := getReport(t, h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "<testsuite>\n</testsuite>\n", w.Body.String())
}

func TestReport_NotFound(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, nil))

	w := getReport(t, h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "<error>junit.xml not found</error>\n", w.Body.String())
}

func TestReport_NotFound_DoesNotOpen(t *testing.T) {
	s := mocks.NewStorage(t)
	s.On("Exists", mock.Anything, handler.DefaultReportKey).Return(false, nil).Once()

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))

	assert.Equal(t, handler.ReportNotFoundBody, w.Body.String())
	s.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestReport_PreservesLines(t *testing.T) {
	lines := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<testsuites>`,
		`  <testsuite name="pkg" tests="2" failures="1">`,
		`    <testcase name="a"/>`,
		``,
		`    <testcase name="b"><failure>boom</failure></testcase>`,
		`  </testsuite>`,
		`</testsuites>`,
	}
	content := strings.Join(lines, "\n") + "\n"
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, &content))

	w := getReport(t, h)
	assert.Equal(t, lines, strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n"))
}

func TestReport_TerminatesLastLine(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite>\n</testsuite>")))

	assert.Equal(t, "<testsuite>\n</testsuite>\n", getReport(t, h).Body.String())
}

func TestReport_NormalizesCRLF(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite>\r\n</testsuite>\r\n")))

	assert.Equal(t, "<testsuite>\n</testsuite>\n", getReport(t, h).Body.String())
}

func TestReport_NormalizesCR(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite>\r</testsuite>\r")))

	assert.Equal(t, "<testsuite>\n</testsuite>\n", getReport(t, h).Body.String())
}

func TestReport_MixedLineEndings(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("a\r\nb\rc\n\r\n\rd")))

	assert.Equal(t, "a\nb\nc\n\n\nd\n", getReport(t, h).Body.String())
}

func TestReport_LineEndingsAcrossReads(t *testing.T) {
	s := mocks.NewStorage(t)
	s.On("Exists", mock.Anything, handler.DefaultReportKey).Return(true, nil).Once()
	s.On("Open", mock.Anything, handler.DefaultReportKey).Return(io.NopCloser(iotest.OneByteReader(strings.NewReader("a\r\nb\rc\r"))), nil).Once()

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a\nb\nc\n", w.Body.String())
}

func TestReport_EmptyFile(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("")))

	w := getReport(t, h)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestReport_LongLine(t *testing.T) {
	line := strings.Repeat("x", 256*1024)
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, &line))

	assert.Equal(t, line+"\n", getReport(t, h).Body.String())
}

func TestReport_Idempotent(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite>\n</testsuite>\n")))

	first := getReport(t, h)
	second := getReport(t, h)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, first.Header(), second.Header())
}

func TestReport_RechecksExistence(t *testing.T) {
	s := newDeploymentRoot(t, nil)
	h := handler.NewReport(zaptest.NewLogger(t), s)

	assert.Equal(t, handler.ReportNotFoundBody, getReport(t, h).Body.String())

	p, err := s.RealPath(handler.DefaultReportKey)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
	require.NoError(t, os.WriteFile(p, []byte("<testsuite/>\n"), 0o600))

	assert.Equal(t, "<testsuite/>\n", getReport(t, h).Body.String())

	require.NoError(t, os.Remove(p))
	assert.Equal(t, handler.ReportNotFoundBody, getReport(t, h).Body.String())
}

func TestReport_Head(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite/>\n")))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/junit.xml", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestReport_MethodNotAllowed(t *testing.T) {
	h := handler.NewReport(zaptest.NewLogger(t), newDeploymentRoot(t, ptr("<testsuite/>\n")))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/junit.xml", strings.NewReader("x")))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReport_WithKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "reports"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reports", "unit.xml"), []byte("<testsuite/>"), 0o600))
	s, err := storage.NewFilesystemStorage(dir)
	require.NoError(t, err)

	h := handler.NewReport(zaptest.NewLogger(t), s, handler.ReportWithKey("/reports/unit.xml"))
	assert.Equal(t, "<testsuite/>\n", getReport(t, h).Body.String())
}

func TestReport_BlobStorage(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })
	require.NoError(t, bucket.WriteAll(ctx, "app/"+reportPath, []byte("<testsuite>\n</testsuite>\n"), nil))

	h := handler.NewReport(zaptest.NewLogger(t), storage.NewBlobStorageFromBucket(bucket, "app"))
	w := getReport(t, h)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "<testsuite>\n</testsuite>\n", w.Body.String())
}

func TestReport_DirectoryAtReportPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, filepath.FromSlash(reportPath)), 0o700))
	s, err := storage.NewFilesystemStorage(dir)
	require.NoError(t, err)

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "junit.xml not found")
}

func TestReport_ExistsError(t *testing.T) {
	s := mocks.NewStorage(t)
	s.On("Exists", mock.Anything, handler.DefaultReportKey).Return(false, os.ErrPermission).Once()

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "junit.xml not found")
}

func TestReport_OpenError(t *testing.T) {
	s := mocks.NewStorage(t)
	s.On("Exists", mock.Anything, handler.DefaultReportKey).Return(true, nil).Once()
	s.On("Open", mock.Anything, handler.DefaultReportKey).Return(nil, os.ErrPermission).Once()

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type failingReader struct {
	data   io.Reader
	closed bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("truncated")
	}
	return n, err
}

func (r *failingReader) Close() error {
	r.closed = true
	return nil
}

func TestReport_ReadErrorReleasesFile(t *testing.T) {
	rc := &failingReader{data: strings.NewReader("<testsuite>\n")}
	s := mocks.NewStorage(t)
	s.On("Exists", mock.Anything, handler.DefaultReportKey).Return(true, nil).Once()
	s.On("Open", mock.Anything, handler.DefaultReportKey).Return(rc, nil).Once()

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "<testsuite>")
	assert.True(t, rc.closed)
}

type closeErrReader struct {
	io.Reader
}

func (closeErrReader) Close() error {
	return errors.New("close failed")
}

func TestReport_CloseError(t *testing.T) {
	s := mocks.NewStorage(t)
	s.On("Exists", mock.Anything, handler.DefaultReportKey).Return(true, nil).Once()
	s.On("Open", mock.Anything, handler.DefaultReportKey).Return(closeErrReader{strings.NewReader("<testsuite/>\n")}, nil).Once()

	w := getReport(t, handler.NewReport(zaptest.NewLogger(t), s))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
