package engine

import (
	"errors"
	"fmt"
	"net"

	"github.com/mverret/binance-ledger/internal/api"
	"github.com/mverret/binance-ledger/internal/model"
)

// PartitionError reports a failed partition inside a bulk sync. SyncAll
// continues past it so one bad symbol never discards progress on the rest.
type PartitionError struct {
	Element   model.ElementType
	Partition string
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("sync %s/%s: %v", e.Element, e.Partition, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// isTransient reports whether err is worth retrying: rate limits, server
// errors and network failures. Auth and parameter errors are permanent.
func isTransient(err error) bool {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
