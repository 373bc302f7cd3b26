package observability

import (
	"errors"

	"github.com/rafaeljc/mimir/internal/projectconfig"
)

// Compile-time check that the handler satisfies the registry's sink contract.
var _ projectconfig.ErrorHandler = (*MetricsErrorHandler)(nil)

// MetricsErrorHandler is the error-handler sink wired into every compiled
// config. Each not-found signal becomes a labeled counter increment, so a
// consumer repeatedly asking for an unknown key shows up on a dashboard,
// not only in the logs.
type MetricsErrorHandler struct{}

// Handle implements projectconfig.ErrorHandler.
func (MetricsErrorHandler) Handle(err error) {
	var nfe *projectconfig.NotFoundError
	if errors.As(err, &nfe) {
		LookupMisses.WithLabelValues(string(nfe.Kind)).Inc()
		return
	}
	LookupMisses.WithLabelValues("other").Inc()
}
