package rotation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// FilePrefix and FileExt bound every log file name.
const (
	FilePrefix = "BLE_Log_"
	FileExt    = ".csv"
)

var fileNameRE = regexp.MustCompile(`^BLE_Log_([A-Za-z0-9-]+)_(\d{4})_(\d{1,2})_(\d{1,2})_(\d+)\.csv$`)

// FileName returns the name of the log file for run, day and sequence.
// Month and day are not zero padded.
func FileName(runID string, day Day, sequence int) string {
	return fmt.Sprintf("%s%s_%d_%d_%d_%d%s",
		FilePrefix, runID, day.Year, int(day.Month), day.Day, sequence, FileExt)
}

// FileNameParts is the information encoded in a log file name.
type FileNameParts struct {
	RunID    string
	Day      Day
	Sequence int
}

// ParseFileName decodes a name produced by FileName.
func ParseFileName(name string) (FileNameParts, error) {
	m := fileNameRE.FindStringSubmatch(name)
	if m == nil {
		return FileNameParts{}, fmt.Errorf("not a log file name: %q", name)
	}

	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[4])
	seq, err := strconv.Atoi(m[5])
	if err != nil {
		return FileNameParts{}, fmt.Errorf("invalid sequence in %q: %w", name, err)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return FileNameParts{}, fmt.Errorf("invalid date in %q", name)
	}

	return FileNameParts{
		RunID:    m[1],
		Day:      Day{Year: year, Month: time.Month(month), Day: day},
		Sequence: seq,
	}, nil
}
