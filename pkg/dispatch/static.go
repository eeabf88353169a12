package dispatch

import (
	"bufio"
	"io"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/foomo/reportserver/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrResourceNotFound is returned by a static dispatcher when its resource is missing.
var ErrResourceNotFound = errors.New("resource not found")

type (
	// StaticProvider serves static resources of the deployment root.
	StaticProvider struct {
		l       *zap.Logger
		storage storage.Storage
	}
	staticDispatcher struct {
		l        *zap.Logger
		storage  storage.Storage
		resource string
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewStaticProvider(l *zap.Logger, s storage.Storage) *StaticProvider {
	return &StaticProvider{
		l:       l.Named("static"),
		storage: s,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (p *StaticProvider) RequestDispatcher(resource string) Dispatcher {
	if resource == "" {
		return nil
	}
	return &staticDispatcher{
		l:        p.l.With(zap.String("resource", resource)),
		storage:  p.storage,
		resource: path.Clean("/" + resource),
	}
}

// Forward streams the resource to w. A missing resource is reported as
// ErrResourceNotFound before anything is written, a failure after the first
// byte as *CommittedError.
func (d *staticDispatcher) Forward(w http.ResponseWriter, r *http.Request) (err error) {
	f, err := d.storage.Open(r.Context(), d.resource)
	if errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(ErrResourceNotFound, d.resource)
	} else if err != nil {
		return errors.Wrap(err, "failed to open resource")
	}
	var n int64
	defer func() {
		err = multierr.Append(err, f.Close())
		var committed *CommittedError
		if err != nil && n > 0 && !errors.As(err, &committed) {
			err = &CommittedError{Err: err}
		}
	}()

	br := bufio.NewReader(f)
	if ct := mime.TypeByExtension(path.Ext(d.resource)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		head, err := br.Peek(512)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return errors.Wrap(err, "failed to sniff resource")
		}
		w.Header().Set("Content-Type", http.DetectContentType(head))
	}

	if r.Method == http.MethodHead {
		return nil
	}

	n, err = io.Copy(w, br)
	if err != nil {
		return errors.Wrap(err, "failed to copy resource")
	}
	d.l.Debug("forwarded", zap.Int64("bytes", n))
	return nil
}
