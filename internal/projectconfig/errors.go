package projectconfig

// EntityKind names the entity space an accessor miss refers to.
type EntityKind string

const (
	KindGroup      EntityKind = "group"
	KindExperiment EntityKind = "experiment"
	KindEvent      EntityKind = "event"
	KindAudience   EntityKind = "audience"
	KindAttribute  EntityKind = "attribute"
	KindVariation  EntityKind = "variation"
	KindFeature    EntityKind = "feature"
	KindRollout    EntityKind = "rollout"
)

// NotFoundError reports that an accessor was asked for a key or id that is
// not in the compiled index. It travels through the error-handler sink only;
// accessors never return it, because callers are guaranteed a dereferenceable
// zero-value entity on a miss.
type NotFoundError struct {
	Kind    EntityKind
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ErrorHandler receives every non-fatal condition the index signals.
// Implementations must be safe for concurrent use; the index may be read
// from many goroutines at once.
type ErrorHandler interface {
	Handle(err error)
}

// NoOpHandler discards every signal. It is the default sink when the caller
// wires none.
type NoOpHandler struct{}

// Handle implements ErrorHandler.
func (NoOpHandler) Handle(error) {}
