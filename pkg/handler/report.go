package handler

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/foomo/reportserver/pkg/metrics"
	"github.com/foomo/reportserver/pkg/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// DefaultReportKey deployment relative location of the junit report
	DefaultReportKey = "/WEB-INF/junit/junit.xml"
	// ReportContentType is sent on every report response, including the missing report body
	ReportContentType = "text/xml"
	// ReportNotFoundBody is written when there is no report in the deployment root
	ReportNotFoundBody = "<error>junit.xml not found</error>\n"

	maxReportLineSize = 64 << 20
)

type (
	Report struct {
		l       *zap.Logger
		key     string
		storage storage.Storage
	}
	ReportOption func(*Report)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewReport returns a handler serving the junit report of the deployment root
func NewReport(l *zap.Logger, s storage.Storage, opts ...ReportOption) http.Handler {
	inst := &Report{
		l:       l.Named("report"),
		key:     DefaultReportKey,
		storage: s,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func ReportWithKey(v string) ReportOption {
	return func(o *Report) {
		o.key = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *Report) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var (
		start  = time.Now()
		status = metrics.StatusError
		l      = h.l.With(
			zap.String("request_id", uuid.New().String()),
			zap.String("key", h.key),
		)
	)
	defer func() {
		metrics.ReportRequestCounter.WithLabelValues(status).Inc()
		metrics.ReportRequestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	body, found, err := h.render(r.Context())
	if err != nil {
		l.Error("failed to read report", zap.Error(err))
		httputils.ServerError(l, w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", ReportContentType)
	if found {
		status = metrics.StatusFound
		l.Debug("serving report", zap.Int("bytes", body.Len()))
	} else {
		status = metrics.StatusMissing
		l.Info("report not found")
		body = bytes.NewBufferString(ReportNotFoundBody)
	}

	if r.Method == http.MethodHead {
		return
	}

	n, err := w.Write(body.Bytes())
	metrics.ReportBytesCounter.WithLabelValues().Add(float64(n))
	if err != nil {
		l.Warn("failed to write report", zap.Error(err))
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// render copies the report into a buffer so that read errors surface before
// any byte reaches the client. found is false when there is no report.
func (h *Report) render(ctx context.Context) (body *bytes.Buffer, found bool, err error) {
	ok, err := h.storage.Exists(ctx, h.key)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to check report")
	} else if !ok {
		return nil, false, nil
	}

	f, err := h.storage.Open(ctx, h.key)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to open report")
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	body = &bytes.Buffer{}
	if err := copyLines(body, f); err != nil {
		return nil, false, errors.Wrap(err, "failed to read report")
	}
	return body, true, nil
}

// copyLines writes every line of r to w terminated by a single "\n".
// A line ends at "\n", "\r" or "\r\n", a missing terminator on the last
// line is added.
func copyLines(w io.Writer, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxReportLineSize)
	scanner.Split(scanLines)
	for scanner.Scan() {
		if _, err := w.Write(scanner.Bytes()); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// scanLines is a bufio.SplitFunc that treats "\n", "\r" and "\r\n" as line
// terminators and drops them from the token.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		switch {
		case data[i] == '\n':
			return i + 1, data[:i], nil
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		}
		// "\r" at the end of the buffer, wait for the next byte
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
