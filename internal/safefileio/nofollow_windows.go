package safefileio

import "os"

// Windows has no O_NOFOLLOW; the regular file check still rejects directories and devices.
const openNoFollow = 0

func isNoFollowError(error) bool {
	return false
}

// Windows ACLs are not expressed in mode bits.
func checkPermissions(os.FileInfo, string) error {
	return nil
}
