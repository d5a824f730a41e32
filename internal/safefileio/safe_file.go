package safefileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFile reads filePath, which must be a regular file of at most maxSize
// bytes that is not a symbolic link and, outside Windows, is not writable by
// group or others. Errors from opening the file are wrapped, so
// errors.Is(err, os.ErrNotExist) works.
func ReadFile(filePath string, maxSize int64) ([]byte, error) {
	if filePath == "" {
		return nil, ErrInvalidFilePath
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilePath, err)
	}

	// #nosec G304 - the path comes from the local operator and symlinks are refused
	file, err := os.OpenFile(absPath, os.O_RDONLY|openNoFollow, 0)
	if err != nil {
		if isNoFollowError(err) {
			return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	info, err := validateFile(file, absPath)
	if err != nil {
		return nil, err
	}
	if err := checkPermissions(info, absPath); err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, absPath)
	}

	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", absPath, err)
	}
	if int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, absPath)
	}
	return content, nil
}

// CreateExclusive creates a new file at filePath with perm. It fails with
// ErrFileExists if anything, including a dangling symlink, already exists there.
func CreateExclusive(filePath string, perm os.FileMode) (*os.File, error) {
	if filePath == "" {
		return nil, ErrInvalidFilePath
	}

	// #nosec G304 - O_EXCL refuses to follow or reuse an existing entry
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL|openNoFollow, perm)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrExist):
			return nil, fmt.Errorf("%w: %s", ErrFileExists, filePath)
		case isNoFollowError(err):
			return nil, fmt.Errorf("%w: %s", ErrIsSymlink, filePath)
		default:
			return nil, fmt.Errorf("failed to create %s: %w", filePath, err)
		}
	}
	return file, nil
}

// validateFile checks through the open descriptor that the file is regular.
func validateFile(file *os.File, filePath string) (os.FileInfo, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", ErrInvalidFilePath, filePath)
	}
	return info, nil
}
