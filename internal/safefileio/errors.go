// Package safefileio opens operator supplied files without following symbolic
// links and refuses content that is not a small regular file.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the specified path is a symbolic link, which is not allowed.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrFileTooLarge indicates that the file is larger than the caller allows.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileExists indicates that the file already exists.
	ErrFileExists = errors.New("file exists")

	// ErrInvalidFilePermissions indicates that the file is writable by group or others.
	ErrInvalidFilePermissions = errors.New("invalid file permissions")
)
