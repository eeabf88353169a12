package handler

import (
	"net/http"

	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/foomo/reportserver/pkg/dispatch"
	"github.com/foomo/reportserver/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultForwardTarget resource the forward handler dispatches to
const DefaultForwardTarget = "/index.jsp"

type (
	Forward struct {
		l        *zap.Logger
		target   string
		provider dispatch.Provider
	}
	ForwardOption func(*Forward)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewForward returns a handler that hands every GET over to the target's dispatcher
func NewForward(l *zap.Logger, provider dispatch.Provider, opts ...ForwardOption) http.Handler {
	inst := &Forward{
		l:        l.Named("forward"),
		target:   DefaultForwardTarget,
		provider: provider,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func ForwardWithTarget(v string) ForwardOption {
	return func(o *Forward) {
		o.target = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *Forward) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	d := h.provider.RequestDispatcher(h.target)
	if d == nil {
		metrics.ForwardRequestCounter.WithLabelValues(metrics.StatusNotFound).Inc()
		httputils.ServerError(h.l, w, r, http.StatusNotFound, errors.Errorf("no dispatcher for %q", h.target))
		return
	}

	var committed *dispatch.CommittedError
	if err := d.Forward(w, r); errors.As(err, &committed) {
		// headers and part of the body are out already
		metrics.ForwardRequestCounter.WithLabelValues(metrics.StatusError).Inc()
		h.l.Error("failed to forward", zap.String("target", h.target), zap.Error(err))
		return
	} else if errors.Is(err, dispatch.ErrResourceNotFound) {
		metrics.ForwardRequestCounter.WithLabelValues(metrics.StatusNotFound).Inc()
		httputils.ServerError(h.l, w, r, http.StatusNotFound, err)
		return
	} else if err != nil {
		metrics.ForwardRequestCounter.WithLabelValues(metrics.StatusError).Inc()
		httputils.ServerError(h.l, w, r, http.StatusInternalServerError, errors.Wrap(err, "failed to forward"))
		return
	}

	metrics.ForwardRequestCounter.WithLabelValues(metrics.StatusSuccess).Inc()
}
