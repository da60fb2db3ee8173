//go:build !unix

package cache

import "sync"

var dirLock sync.Mutex

// lockDir serializes writers within the process only.
func lockDir(string) (func(), error) {
	dirLock.Lock()
	return dirLock.Unlock, nil
}
