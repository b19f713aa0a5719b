//go:build !unix

package container

import "os"

// Advisory locking is only available on unix; elsewhere writers are not serialized.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
