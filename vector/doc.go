// Package vector provides the semantic index that mirrors conversation
// history for similarity search. The canonical transcript lives in the
// conversation log; the index is an auxiliary, best-effort replica, so every
// operation here is allowed to fail without affecting a turn.
package vector
