package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Packet file layout: an 8-byte magic (the last byte is the format version),
// a uint32 little-endian sample rate, then repeated
// [uint32 little-endian length][packet bytes] until end of file.
var fileMagic = [8]byte{'O', 'P', 'U', 'S', 'P', 'K', 'T', 1}

// maxPacketLen bounds a single stored packet. Opus packets top out around
// 4 kB; anything larger means the file is corrupt.
const maxPacketLen = 1 << 16

// PacketWriter appends length-prefixed Opus packets to a file.
// Not safe for concurrent use.
type PacketWriter struct {
	f *os.File
	w *bufio.Writer
}

// CreatePacketFile creates (or truncates) path and writes the file header.
func CreatePacketFile(path string, sampleRate int) (*PacketWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create packet file %q: %w", path, err)
	}
	w := bufio.NewWriter(f)

	var hdr [12]byte
	copy(hdr[:8], fileMagic[:])
	binary.LittleEndian.PutUint32(hdr[8:], uint32(sampleRate))
	if _, err := w.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: write header %q: %w", path, err)
	}

	return &PacketWriter{f: f, w: w}, nil
}

// WritePacket appends one packet with its length prefix.
func (pw *PacketWriter) WritePacket(p []byte) error {
	if len(p) > maxPacketLen {
		return fmt.Errorf("recorder: packet of %d bytes exceeds limit", len(p))
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(p)))
	if _, err := pw.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("recorder: write packet length: %w", err)
	}
	if _, err := pw.w.Write(p); err != nil {
		return fmt.Errorf("recorder: write packet: %w", err)
	}
	return nil
}

// Close flushes buffered packets and closes the file. Safe to call twice.
func (pw *PacketWriter) Close() error {
	if pw.f == nil {
		return nil
	}
	flushErr := pw.w.Flush()
	closeErr := pw.f.Close()
	pw.f = nil
	return errors.Join(flushErr, closeErr)
}

// PacketReader iterates over a packet file written by a [PacketWriter].
// Not safe for concurrent use.
type PacketReader struct {
	f    *os.File
	r    *bufio.Reader
	rate int
}

// OpenPacketFile opens path and validates the header.
func OpenPacketFile(path string) (*PacketReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open packet file %q: %w", path, err)
	}
	r := bufio.NewReader(f)

	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: read header %q: %w", path, err)
	}
	if [8]byte(hdr[:8]) != fileMagic {
		f.Close()
		return nil, fmt.Errorf("recorder: %q is not a packet file", path)
	}

	return &PacketReader{
		f:    f,
		r:    r,
		rate: int(binary.LittleEndian.Uint32(hdr[8:])),
	}, nil
}

// SampleRate returns the rate the stream was encoded at.
func (pr *PacketReader) SampleRate() int {
	return pr.rate
}

// Next returns the next packet, or [io.EOF] at a clean end of file.
// A length prefix without its payload reports [io.ErrUnexpectedEOF].
func (pr *PacketReader) Next() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(pr.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("recorder: read packet length: %w", err)
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > maxPacketLen {
		return nil, fmt.Errorf("recorder: packet length %d exceeds limit, file corrupt", n)
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(pr.r, p); err != nil {
		return nil, fmt.Errorf("recorder: read packet body: %w", err)
	}
	return p, nil
}

// Close closes the underlying file.
func (pr *PacketReader) Close() error {
	return pr.f.Close()
}
