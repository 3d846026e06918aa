package qrt

import "fmt"

// TruncatedRecordError reports a record header or payload that claims
// more bytes than the buffer holds. It aborts the whole decode; Offset
// is absolute within the buffer passed to Decode.
type TruncatedRecordError struct {
	Tag    Tag
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("truncated %s record at offset %d: need %d bytes, have %d", e.Tag, e.Offset, e.Need, e.Have)
}

// CountMismatchError reports a declared element count that disagrees
// with the number of matching records actually found.
type CountMismatchError struct {
	Tag      Tag
	Offset   int
	Declared int
	Found    int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s count mismatch at offset %d: declared %d, found %d", e.Tag, e.Offset, e.Declared, e.Found)
}

// Diagnostic records a lenient condition encountered during decode:
// unknown tags, records skipped in an unexpected place, trailing bytes.
// Diagnostics never abort a decode.
type Diagnostic struct {
	Tag     Tag    `json:"tag"`
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at offset %d: %s", d.Tag, d.Offset, d.Message)
}
