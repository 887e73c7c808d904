// Package storage provides durable key-value persistence for strand.
//
// Every piece of conversation state is stored as a single string-valued
// record: the conversation catalog under "conversations", the selection
// under "current_conversation", the sidebar preference under
// "sidebar_collapsed", and one message log per conversation under
// "messages_<conversation id>". Callers JSON-encode their own values; the
// store never interprets them.
//
// Writes are synchronous - when Set returns the record is durable. There is
// no transaction spanning multiple keys: records for different conversations
// never race because each lives under its own key, and the single logical
// writer (the session manager) serializes writes to shared keys.
//
// SQLiteStore is the production implementation, a single kv table in SQLite
// (modernc.org/sqlite) with WAL mode. MemStore is a map-backed fake for
// unit tests.
package storage
