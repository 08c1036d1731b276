//go:build !unix

package pending

// lockFile is a no-op where flock is unavailable; writes are still atomic
// renames, but concurrent processes may drop each other's changes.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
