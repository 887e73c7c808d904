// Package responder produces assistant replies for user messages.
//
// The Responder interface is the session manager's only view of response
// generation: an opaque asynchronous function from input text to reply text,
// plus a busy flag. The Simulated implementation waits a configurable delay
// and answers from persona rules (TOML keyword/reply pairs), so the rest of
// the system exercises its full send path without any network dependency.
package responder
