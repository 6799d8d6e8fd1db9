package ledger

import (
	"errors"
	"fmt"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
)

var (
	// ErrIntegrity means an entity that must already exist was not found.
	// Processing has to stop: the event stream is out of order or a handler is wrong.
	ErrIntegrity = errors.New("ledger integrity violation")
	// ErrMalformed marks an event payload that does not decode.
	ErrMalformed = errors.New("malformed event payload")
	// ErrUnknownEvent is returned for event names without a handler.
	ErrUnknownEvent = errors.New("unknown event")
)

func missing(kind string, id ids.ID) error {
	return fmt.Errorf("%w: %s %s not found", ErrIntegrity, kind, id)
}
