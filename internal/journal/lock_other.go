//go:build !unix

package journal

import "os"

// Without flock the lock is the existence of the file itself. A crashed
// run leaves it behind and it has to be removed by hand.

func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}

func openLockFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
}

func removeLockFile(path string) {
	os.Remove(path)
}
