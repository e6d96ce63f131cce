// Package rotation decides when the open log file must be flushed or closed.
//
// Policy.Decide is a pure function of the open file's metadata, the calendar
// day of the incoming data and the pending buffer length. Triggers are
// evaluated in a fixed precedence order and the first match wins:
//
//  1. no file open          -> RotateForNewDay (bootstrap)
//  2. calendar day changed  -> RotateForNewDay
//  3. buffer >= size limit  -> RotateForSize
//  4. cycles >= threshold   -> RotateForElapsedCycles
//  5. otherwise             -> Continue
//
// RotateForSize only flushes the buffer into the open file unless the policy
// is configured with SizeActionRotate. The day and elapsed-cycle triggers
// always close the file.
//
// The package also owns the file naming scheme
//
//	BLE_Log_<run_id>_<year>_<month>_<day>_<sequence>.csv
package rotation
