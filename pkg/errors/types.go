package errors

import (
	"fmt"
)

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// MissingManifest is returned when a directory that must contain a
// package.json doesn't have one.
type MissingManifest struct {
	Path string
}

func (err MissingManifest) Error() string {
	return err.FriendlyMessage()
}

func (err MissingManifest) FriendlyMessage() string {
	return fmt.Sprintf("package.json not found at %q", err.Path)
}

// MalformedManifest is returned when a package.json exists but can't be
// parsed.
type MalformedManifest struct {
	Path string
	Err  error
}

func (err MalformedManifest) Error() string {
	return err.FriendlyMessage()
}

func (err MalformedManifest) FriendlyMessage() string {
	return fmt.Sprintf("package.json at %q could not be parsed: %s", err.Path, err.Err)
}

func (err MalformedManifest) Unwrap() error {
	return err.Err
}

// SnapshotError is returned when the contents of a local package couldn't be
// enumerated.
type SnapshotError struct {
	Path string
	Err  error
}

func (err SnapshotError) Error() string {
	return err.FriendlyMessage()
}

func (err SnapshotError) FriendlyMessage() string {
	return fmt.Sprintf("failed to read local package at %q: %s", err.Path, err.Err)
}

func (err SnapshotError) Unwrap() error {
	return err.Err
}

// InstallFailure is returned when the package manager exits unsuccessfully.
type InstallFailure struct {
	Err error
}

func (err InstallFailure) Error() string {
	return err.FriendlyMessage()
}

func (err InstallFailure) FriendlyMessage() string {
	return fmt.Sprintf("package installation failed: %s", err.Err)
}

func (err InstallFailure) Unwrap() error {
	return err.Err
}
