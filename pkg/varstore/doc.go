/*
Package varstore persists resolver variable contexts in a SQLite database,
keyed by a caller-chosen name. It lets the variables captured during one
resolution be threaded into a later, separate invocation, which is how the
CLI chains outputs across runs.
*/
package varstore
