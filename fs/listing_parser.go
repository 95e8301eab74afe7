package fs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RecordPrefix starts every well-formed remote listing record.
const RecordPrefix = "//"

// IgnoredRecordTag marks records for entries matched by an exclusion pattern.
const IgnoredRecordTag = "x"

const recordFieldCount = 5

// Mode top-nibble values mapping to entry kinds.
const (
	modeKindDirectory = 0x4
	modeKindFile      = 0x8
	modeKindSymlink   = 0xA
)

// ListingParser converts the remote listing record stream into Entries.
//
// Each record has the shape:
//
//	//<flag>|<modeHex>|<size>|<mtime>|./relativePath
//
// A line without the record prefix is a continuation of the previous entry's
// name with an embedded newline restored; the one-record-per-line protocol
// would otherwise split filenames that legitimately contain newlines. The
// parser is an explicit two-state machine: expecting a new record, or
// continuing the previous one.
type ListingParser struct {
	entries Entries
	last    *Entry
}

// NewListingParser returns an empty parser.
func NewListingParser() *ListingParser {
	return &ListingParser{}
}

// ParseLine consumes one line of remote listing output.
func (p *ListingParser) ParseLine(line string) error {
	if !strings.HasPrefix(line, RecordPrefix) {
		if p.last == nil {
			return errors.Errorf("continuation line with no preceding record: %q", line)
		}

		p.last.Name += "\n" + line

		return nil
	}

	fields := strings.SplitN(line[len(RecordPrefix):], "|", recordFieldCount)
	if len(fields) != recordFieldCount {
		return errors.Errorf("malformed listing record: %q", line)
	}

	var ignored bool

	switch fields[0] {
	case "":
	case IgnoredRecordTag:
		ignored = true
	default:
		return errors.Errorf("unknown record tag %q in %q", fields[0], line)
	}

	mode, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return errors.Wrapf(err, "malformed mode in record %q", line)
	}

	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return errors.Wrapf(err, "malformed size in record %q", line)
	}

	mtime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return errors.Wrapf(err, "malformed mtime in record %q", line)
	}

	var kind Kind

	switch mode >> 12 {
	case modeKindDirectory:
		kind = KindDirectory
	case modeKindFile:
		kind = KindFile
	case modeKindSymlink:
		kind = KindSymlink
	default:
		return errors.Errorf("unsupported file type (mode %x) for %q", mode, fields[4])
	}

	e := &Entry{
		Name:    strings.TrimPrefix(fields[4], "./"),
		Kind:    kind,
		Size:    size,
		ModTime: TruncateModTime(mtime),
		Ignored: ignored,
	}

	p.entries = append(p.entries, e)
	p.last = e

	return nil
}

// Entries returns the parsed listing, sorted by name, with the root record
// (".") discarded.
func (p *ListingParser) Entries() Entries {
	result := make(Entries, 0, len(p.entries))

	for _, e := range p.entries {
		if e.Name == "." {
			continue
		}

		result = append(result, e)
	}

	result.SortByName()

	return result
}
