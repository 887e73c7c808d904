// Package message holds one conversation's ordered message log.
//
// A Log is pure data with two behaviors: appending with monotonic id
// assignment, and synchronous persistence of the whole log after every
// mutation. Each conversation's log lives under its own durable record
// (messages_<conversation id>), so logs for different conversations never
// contend.
//
// Loading an existing log that turns out to be missing or corrupt degrades
// to a single assistant greeting message rather than failing; the decode
// error is logged and never surfaced to the caller.
package message
