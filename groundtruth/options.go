package groundtruth

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/vecrecall/internal/queue"
)

// TieBreak selects how candidates at equal distance are ranked.
type TieBreak uint8

const (
	// TieBreakFirstSeen keeps the earliest ingested candidate among equal distances.
	TieBreakFirstSeen TieBreak = iota
	// TieBreakIdentifier ranks equal distances by ascending identifier.
	TieBreakIdentifier
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakFirstSeen:
		return "first-seen"
	case TieBreakIdentifier:
		return "identifier"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

func (t TieBreak) order() queue.Order {
	if t == TieBreakIdentifier {
		return queue.OrderID
	}
	return queue.OrderArrival
}

type options struct {
	tieBreak TieBreak
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*options)

// WithTieBreak sets the tie-break policy. Default: TieBreakFirstSeen.
func WithTieBreak(t TieBreak) Option {
	return func(o *options) {
		o.tieBreak = t
	}
}

// WithLogger sets the logger used for lifecycle events.
// If nil is passed, logging is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(opts []Option) options {
	o := options{tieBreak: TieBreakFirstSeen}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
