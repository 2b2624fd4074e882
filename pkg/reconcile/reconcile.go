// Package reconcile decides which rows of a local batch file Wallet has not
// seen yet. The only reference is the filename of the last imported batch,
// which encodes the time that batch was exported.
package reconcile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yurifrl/edenwallet/pkg/csv"
)

// rowLayout matches the first 16 characters of a row, e.g. 2024-03-15T14:22.
const rowLayout = "2006-01-02T15:04"

var cutoffLayouts = []string{"2006-01-02T15:04", "2006-01-02T15"}

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

var errNoDate = errors.New("no date in filename")

// CutoffError reports a batch filename no timestamp could be derived from.
// It is a warning: the caller uploads without trimming.
type CutoffError struct {
	Filename string
	Err      error
}

func (e *CutoffError) Error() string {
	return fmt.Sprintf("cannot read upload date from %q: %v", e.Filename, e.Err)
}

func (e *CutoffError) Unwrap() error {
	return e.Err
}

// Cutoff derives the export time encoded in a batch filename.
//
// The trailing four characters are an extension. The date and the time are
// both separated with '-', so the last '-' is reinterpreted: when the part
// before it already holds the 'T' it separates hours from minutes
// (2024-03-15T14-22.csv), otherwise it separates the date from the hour
// (transactions-2024-03-15-14.csv). Anything before the date is ignored.
func Cutoff(filename string, loc *time.Location) (time.Time, error) {
	if len(filename) <= 4 {
		return time.Time{}, &CutoffError{Filename: filename, Err: errNoDate}
	}
	name := filename[:len(filename)-4]

	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return time.Time{}, &CutoffError{Filename: filename, Err: errNoDate}
	}
	head, tail := name[:idx], name[idx+1:]

	m := datePattern.FindStringIndex(head)
	if m == nil {
		return time.Time{}, &CutoffError{Filename: filename, Err: errNoDate}
	}
	head = head[m[0]:]

	sep := "T"
	if strings.Contains(head, "T") {
		sep = ":"
	}
	stamp := head + sep + tail

	var err error
	for _, layout := range cutoffLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, stamp, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &CutoffError{Filename: filename, Err: err}
}

// Status is the reconciliation result for one row.
type Status int

const (
	// Synced rows predate the cutoff and were sent with an earlier batch.
	Synced Status = iota
	// ToAdd rows are at or after the cutoff.
	ToAdd
	// Invalid rows have no parsable date prefix and are dropped.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Synced:
		return "synced"
	case ToAdd:
		return "to_add"
	default:
		return "invalid"
	}
}

type Entry struct {
	Line   string
	Time   time.Time
	Status Status
}

type Report struct {
	Cutoff time.Time
	Items  []Entry
	kept   []string
}

// Build compares every data row of content against cutoff. The header line
// never takes part in the comparison and is always kept.
//
// Only the first 16 characters of a row are read as its timestamp. A note
// containing a comma does not matter here, but a date column in another
// format does: such rows end up Invalid. Rows are physical lines, so a note
// containing a newline is split across lines by the csv writer and its
// continuation lines end up Invalid too, leaving the kept record truncated.
func Build(content []byte, cutoff time.Time, loc *time.Location) *Report {
	r := &Report{Cutoff: cutoff}

	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if first {
			first = false
			if line == csv.Header {
				continue
			}
		}
		if line == "" {
			continue
		}

		e := Entry{Line: line, Status: Invalid}
		if len(line) >= len(rowLayout) {
			if t, err := time.ParseInLocation(rowLayout, line[:len(rowLayout)], loc); err == nil {
				e.Time = t
				e.Status = Synced
				if !t.Before(cutoff) {
					e.Status = ToAdd
					r.kept = append(r.kept, line)
				}
			}
		}
		r.Items = append(r.Items, e)
	}
	return r
}

// InSyncCount returns how many rows were already imported.
func (r *Report) InSyncCount() int {
	return r.count(Synced)
}

// MissingCount returns how many rows still need to be imported.
func (r *Report) MissingCount() int {
	return len(r.kept)
}

func (r *Report) InvalidCount() int {
	return r.count(Invalid)
}

func (r *Report) count(s Status) int {
	n := 0
	for _, e := range r.Items {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Bytes renders the header followed by the rows still to import.
func (r *Report) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(csv.Header + "\n")
	for _, line := range r.kept {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
