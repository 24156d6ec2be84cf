// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import "errors"

// Sentinel errors returned by the repository. Callers match them with
// errors.Is; I/O faults are wrapped and match none of these.
var (
	ErrNotFound         = errors.New("not found")
	ErrExists           = errors.New("already exists")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidPath      = errors.New("invalid path")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrTooLarge         = errors.New("file too large")
	ErrNoFiles          = errors.New("no files uploaded")
	ErrTooManyFiles     = errors.New("too many files")
	ErrPresetBackground = errors.New("preset backgrounds cannot be modified")
)

// FileError ties a validation error to the uploaded file that caused it.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return e.File + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}
