package progress

// Stage identifies which phase of an analysis run an event belongs to.
type Stage string

const (
	StageFetching   Stage = "fetching_signatures"
	StageResolving  Stage = "resolving_transactions"
	StageClassified Stage = "classified"
	StageDone       Stage = "done"
)

// Event is one progress update emitted by the pipeline. Done/Total carry the
// resolver position ("resolved N/M signatures"); both are zero for stages
// without a meaningful counter.
type Event struct {
	Token string `json:"token"`
	Stage Stage  `json:"stage"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// Sink receives progress events. Implementations must not block: the
// pipeline publishes from its hot path and slow consumers are the sink's
// problem, not the pipeline's.
type Sink interface {
	Publish(event Event)
}

// NopSink discards all events.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Event) {}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(event Event) { f(event) }

var _ Sink = NopSink{}
var _ Sink = SinkFunc(nil)
