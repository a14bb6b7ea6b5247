//go:build !unix

package server

import "syscall"

// reuseAddress is a no-op where SO_REUSEADDR is not available.
func reuseAddress(network, address string, c syscall.RawConn) error {
	return nil
}
