package utils

import (
	"io"
)

// drainCap bounds how much of an abandoned response body we are willing to
// read just to keep the connection reusable.
const drainCap = 1 << 20

// DrainAndClose empties and closes an HTTP response body so the underlying
// connection can go back to the pool.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.CopyN(io.Discard, rc, drainCap)
	return rc.Close()
}
