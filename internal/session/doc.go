// Package session is the central layer that keeps four facts consistent:
// the set of conversations, the current selection, each conversation's
// message log, and the address bar.
//
// The Manager is a small state machine with two externally observable
// states, no selection and a selected conversation. Every transition -
// boot, new chat, send, navigation, delete, rename - runs to completion
// behind a single mutex, so there is exactly one logical writer. The one
// exception is the responder call inside Send: the lock is released for its
// duration, a per-conversation busy flag marks the in-flight send, and the
// reply is committed to the conversation captured at send time, not to
// whatever is current when the responder settles.
//
// Nothing here is fatal. Storage decode failures fall back to defaults,
// empty input is rejected silently before any state change, responder
// failures surface as a dismissible banner plus a fixed assistant message,
// and navigation to an unknown conversation redirects home.
package session
