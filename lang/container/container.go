// Package container implements OakScript's bytecode container format: a
// fixed 20-byte little-endian header, a code section, and a length-prefixed
// string data section. It exists so `compile`/`runbytecode` can round-trip a
// compiled program to disk without a parser in the loop, and it validates a
// loaded artifact strictly before trusting any of its offsets.
package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andrewtimmins/oakscript/lang/compiler"
)

// Magic identifies an OakScript bytecode container.
var Magic = [8]byte{'O', 'A', 'K', 'S', 'C', 'O', 'D', 'E'}

// Version is the container format version written by this implementation.
// A version bump here means an incompatible encoding.
const Version = 1

const headerSize = 20

// Error reports a malformed container: bad magic, unsupported version, or a
// section whose declared size does not fit the file.
type Error struct{ Msg string }

func (e *Error) Error() string { return "container: " + e.Msg }

// Write serializes prog to w in the container format.
func Write(w io.Writer, prog *compiler.Program) error {
	var data []byte
	for _, rec := range prog.Data {
		data = binary.LittleEndian.AppendUint32(data, uint32(len(rec)))
		data = append(data, rec...)
	}

	header := make([]byte, headerSize)
	copy(header[0:8], Magic[:])
	binary.LittleEndian.PutUint32(header[8:12], Version)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(prog.Code)))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(data)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if _, err := w.Write(prog.Code); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Read deserializes a container previously produced by Write, validating the
// header and every data-section record before returning. It never indexes
// past the bounds of buf no matter how the header or section sizes have been
// corrupted.
func Read(buf []byte) (*compiler.Program, error) {
	if len(buf) < headerSize {
		return nil, &Error{Msg: fmt.Sprintf("file too small for header: %d bytes", len(buf))}
	}
	if string(buf[0:8]) != string(Magic[:]) {
		return nil, &Error{Msg: "bad magic"}
	}
	version := binary.LittleEndian.Uint32(buf[8:12])
	if version > Version {
		return nil, &Error{Msg: fmt.Sprintf("unsupported format version %d", version)}
	}
	codeSize := binary.LittleEndian.Uint32(buf[12:16])
	dataSize := binary.LittleEndian.Uint32(buf[16:20])

	body := buf[headerSize:]
	total := uint64(codeSize) + uint64(dataSize)
	if total > uint64(len(body)) {
		return nil, &Error{Msg: "declared section sizes exceed file length"}
	}

	code := body[:codeSize]
	dataBuf := body[codeSize : codeSize+dataSize]

	var records [][]byte
	off := uint32(0)
	for off < dataSize {
		if off+4 > dataSize {
			return nil, &Error{Msg: "truncated data record length prefix"}
		}
		recLen := binary.LittleEndian.Uint32(dataBuf[off : off+4])
		off += 4
		if uint64(off)+uint64(recLen) > uint64(dataSize) {
			return nil, &Error{Msg: "data record overruns data section"}
		}
		rec := make([]byte, recLen)
		copy(rec, dataBuf[off:off+recLen])
		records = append(records, rec)
		off += recLen
	}

	trailing := len(body) - int(total)
	if trailing < 0 {
		return nil, &Error{Msg: "negative trailing byte count"}
	}

	codeCopy := make([]byte, len(code))
	copy(codeCopy, code)
	return &compiler.Program{Code: codeCopy, Data: records}, nil
}
