package mwax

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const decodeBufferSize = 64 * 1024

// record is the wire layout of one fringe or autos entry: the fine channel
// centre frequency followed by two per polarisation values.
type record struct {
	FreqMHz float32
	A       float32
	B       float32
}

// decodeRecords streams 12 byte records from r into a rows by cols grid,
// invoking visit for each record in row major order. The stream may stop at
// any record boundary; remaining cells are simply never visited. It returns
// the number of records decoded.
//
// A trailing partial record or more records than the grid holds is an
// error, since both mean the file does not match its filename parameters.
func decodeRecords(r io.Reader, rows, cols int, visit func(row, col int, rec record)) (int, error) {
	br := bufio.NewReaderSize(r, decodeBufferSize)
	capacity := rows * cols

	var n int
	row, col := 0, 0
	for {
		var rec record
		err := binary.Read(br, binary.LittleEndian, &rec)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return n, fmt.Errorf("partial record at byte offset %d: payload is not a multiple of %d bytes", n*RecordSize, RecordSize)
		}
		if err != nil {
			return n, fmt.Errorf("reading record %d: %w", n, err)
		}

		if n == capacity {
			return n, fmt.Errorf("too many records: expected at most %d (%d rows of %d channels)", capacity, rows, cols)
		}
		visit(row, col, rec)

		n++
		if col++; col == cols {
			row++
			col = 0
		}
	}
}
