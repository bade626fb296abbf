package services

import "errors"

// Every failure a mutating operation can produce. Handlers match these with
// errors.Is and turn them into the JSON error envelope; nothing here is
// fatal to the process.
var (
	ErrFileTooLarge     = errors.New("file exceeds the per-file size limit")
	ErrNotAuthenticated = errors.New("sign in to upload files")
	ErrDuplicateName    = errors.New("a folder with that name already exists")
	ErrValidation       = errors.New("name must not be empty")
	ErrLinkNotFound     = errors.New("share link not found")
	ErrLinkExpired      = errors.New("share link has expired")
	ErrFileGone         = errors.New("the shared file no longer exists")
)
