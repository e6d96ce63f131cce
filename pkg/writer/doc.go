// Package writer implements the buffered log writer.
//
// A Writer owns the pending line buffer and the single open log file.
// Accept queues canonical lines and applies the rotation policy: a calendar
// day change finalizes the open file and opens a new one, the size trigger
// flushes the buffer into the open file (or rotates, when configured), and
// EndCycle evaluates the elapsed-cycle trigger at each scan cycle end.
//
// Writes that fail keep their lines buffered for the next flush; a line
// written partially resumes where it stopped, so files never contain torn
// or duplicated records. Finalized files are handed to a FinalizeFunc,
// normally the upload dispatcher.
package writer
