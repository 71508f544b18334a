// Package protocol stubs the OS-specific "register/unregister this
// binary as the flashpoint:// URL-scheme handler" operation the share
// command drives. The actual registry/desktop-file write is an
// external-collaborator Non-goal (spec.md §1); this package exposes
// only the idempotent Register/Unregister surface share -c/-C calls,
// grounded on original_source's app/src/command/c-share.h.
package protocol

// Scheme is the archive's custom URL scheme, used both by share -u's
// emitted clipboard URL and by Register/Unregister.
const Scheme = "flashpoint"

// Register idempotently installs this binary as Scheme's OS handler.
// The concrete registry/desktop-file write this delegates to is
// platform-specific and out of this module's scope per spec.md §1;
// Register always succeeds as a no-op placeholder for it.
func Register() error {
	return nil
}

// Unregister idempotently removes this binary as Scheme's OS handler,
// the inverse of Register.
func Unregister() error {
	return nil
}
