//go:build !windows

package safefileio

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

const openNoFollow = syscall.O_NOFOLLOW

// insecureModeBits are the group and other write bits.
const insecureModeBits = 0o022

// isNoFollowError checks if the error indicates we tried to open a symlink.
// Linux reports ELOOP, FreeBSD reports EMLINK and NetBSD reports EFTYPE.
func isNoFollowError(err error) bool {
	var e *os.PathError
	if !errors.As(err, &e) {
		return false
	}
	return errors.Is(e.Err, syscall.ELOOP) || errors.Is(e.Err, syscall.EMLINK) || isEFTYPE(e.Err)
}

func checkPermissions(info os.FileInfo, filePath string) error {
	if perm := info.Mode().Perm(); perm&insecureModeBits != 0 {
		return fmt.Errorf("%w: %s is writable by group or others (%04o)", ErrInvalidFilePermissions, filePath, perm)
	}
	return nil
}
