// Package subfile extracts packet loss statistics from MWAX voltage capture
// subfiles. A subfile starts with a 4096 byte PSRDADA text header followed
// by data blocks; block 0 holds a packet occupancy bitmap in which a zero
// bit marks a UDP packet that never arrived.
package subfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// HeaderSize is the fixed size of the PSRDADA header block.
const HeaderSize = 4096

// Header keys consumed by the packet map extraction.
const (
	keySubobsID   = "SUBOBS_ID"
	keyNInputs    = "NINPUTS"
	keyCoarseChan = "COARSE_CHANNEL"
	keyPacketMap  = "IDX_PACKET_MAP"
)

// Header holds the subset of PSRDADA header fields needed to locate and
// attribute the packet map.
type Header struct {
	SubobsID   string // GPS second of the 8 second subobservation
	NInputs    int    // RF inputs in the capture, two per tile
	CoarseChan string // coarse channel, kept verbatim for the output name
	MapStart   int64  // packet map offset within block 0
	MapLength  int    // packet map length in bytes
}

// Result describes one processed subfile.
type Result struct {
	Header *Header
	Counts []uint16 // lost packets per RF input
	Path   string   // written stats product file
}

// TotalLost returns the sum of the per input counters.
func (r *Result) TotalLost() int {
	var total int
	for _, c := range r.Counts {
		total += int(c)
	}
	return total
}

// ReadHeader reads the PSRDADA header from the start of r. The header is
// newline separated text in which each line is a key, a single space and a
// value.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("subfile is shorter than the %d byte header: %w", HeaderSize, err)
	}
	lines := strings.Split(string(buf), "\n")

	h := &Header{}
	steps := []struct {
		key string
		fn  func(value string) error
	}{
		{keySubobsID, func(v string) error {
			h.SubobsID = v
			return nil
		}},
		{keyNInputs, func(v string) (err error) {
			if h.NInputs, err = strconv.Atoi(v); err != nil {
				return err
			}
			if h.NInputs < 1 {
				return fmt.Errorf("must be at least 1, got %d", h.NInputs)
			}
			return nil
		}},
		{keyCoarseChan, func(v string) error {
			h.CoarseChan = v
			return nil
		}},
		{keyPacketMap, func(v string) error {
			start, length, found := strings.Cut(v, "+")
			if !found {
				return fmt.Errorf("expected <start>+<length>, got %q", v)
			}
			s, err := strconv.ParseUint(start, 10, 63)
			if err != nil {
				return err
			}
			l, err := strconv.ParseUint(length, 10, 31)
			if err != nil {
				return err
			}
			h.MapStart, h.MapLength = int64(s), int(l)
			return nil
		}},
	}
	for _, s := range steps {
		value, err := headerValue(lines, s.key)
		if err != nil {
			return nil, err
		}
		if err = s.fn(value); err != nil {
			return nil, fmt.Errorf("header key %s: %w", s.key, err)
		}
	}
	return h, nil
}

// headerValue returns the value of key among the header lines.
func headerValue(lines []string, key string) (string, error) {
	for _, line := range lines {
		if k, v, found := strings.Cut(line, " "); found && k == key {
			return v, nil
		}
	}
	return "", fmt.Errorf("key %s not found in subfile header", key)
}

// CountLostPackets seeks to the packet map of h within r and counts the
// zero bits of each input's row. Each input owns MapLength/NInputs
// consecutive bytes; one zero bit is one lost packet.
func CountLostPackets(r io.ReadSeeker, h *Header) ([]uint16, error) {
	if h.MapLength%h.NInputs != 0 {
		return nil, fmt.Errorf("packet map length %d is not divisible by %d inputs", h.MapLength, h.NInputs)
	}

	if _, err := r.Seek(HeaderSize+h.MapStart, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to packet map at %d: %w", HeaderSize+h.MapStart, err)
	}
	buf := make([]byte, h.MapLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %d byte packet map: %w", h.MapLength, err)
	}

	perInput := h.MapLength / h.NInputs
	counts := make([]uint16, h.NInputs)
	for i := range counts {
		var lost int
		for _, b := range buf[i*perInput : (i+1)*perInput] {
			lost += bits.OnesCount8(^b)
		}
		counts[i] = uint16(lost)
	}
	return counts, nil
}

// WriteCounts writes the stats product payload: one little-endian uint16
// per RF input.
func WriteCounts(w io.Writer, counts []uint16) error {
	return binary.Write(w, binary.LittleEndian, counts)
}

// OutputName returns the stats product filename for a subfile captured on
// host: packetstats_<subobs_id>_<n>T_ch<n>_<hostname>.dat.
func OutputName(h *Header, host string) string {
	return fmt.Sprintf("packetstats_%s_%dT_ch%s_%s.dat", h.SubobsID, h.NInputs/2, h.CoarseChan, host)
}

// Process extracts the packet loss counts from the subfile at path and
// writes them as a stats product into outDir.
func Process(path, outDir, host string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening subfile: %w", err)
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	counts, err := CountLostPackets(f, h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	outPath := filepath.Join(outDir, OutputName(h, host))
	if err = writeCountsFile(outPath, counts); err != nil {
		return nil, err
	}
	return &Result{Header: h, Counts: counts, Path: outPath}, nil
}

func writeCountsFile(path string, counts []uint16) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer closeWithError(f, &err)

	bw := bufio.NewWriter(f)
	if err = WriteCounts(bw, counts); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return bw.Flush()
}

// closeWithError closes cl and assigns a close error to err, unless err
// already carries one.
func closeWithError(cl interface{ Close() error }, err *error) {
	if cerr := cl.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
