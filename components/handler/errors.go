package handler

import (
	"github.com/opendap/olfs/core/fault"
)

// clientAbort classifies a failed write to the client.
func clientAbort(err error) error {
	return fault.Wrap(fault.ClientAbort, err, "Client went away.")
}
