package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const maxVarIntBytes = 5

var (
	errVarIntTooLong = errors.New("varint is too long")
	errPacketTooLong = errors.New("packet exceeds size limit")
)

// appendVarInt appends v using the 7-bit little-endian group encoding of the
// Java edition wire format. Negative values take five bytes.
func appendVarInt(b []byte, v int32) []byte {
	u := uint32(v)
	for {
		if u&^0x7f == 0 {
			return append(b, byte(u))
		}
		b = append(b, byte(u&0x7f)|0x80)
		u >>= 7
	}
}

// readVarInt decodes a VarInt of at most five bytes.
func readVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	for i := 0; i < maxVarIntBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, errVarIntTooLong
}

// appendString appends a VarInt length-prefixed UTF-8 string.
func appendString(b []byte, s string) []byte {
	b = appendVarInt(b, int32(len(s)))
	return append(b, s...)
}

// readString reads a VarInt length-prefixed string from a packet payload.
func readString(r *bytes.Reader) (string, error) {
	n, err := readVarInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > r.Len() {
		return "", fmt.Errorf("string length %d out of range", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writePacket frames id and payload as length | id | payload and writes the
// whole frame in one call.
func writePacket(w io.Writer, id int32, payload []byte) error {
	body := appendVarInt(nil, id)
	body = append(body, payload...)

	frame := appendVarInt(make([]byte, 0, len(body)+maxVarIntBytes), int32(len(body)))
	frame = append(frame, body...)

	_, err := w.Write(frame)
	return err
}

// readPacket reads one frame and returns its id and payload. Frames longer
// than maxSize are rejected before any payload is allocated.
func readPacket(r *bufio.Reader, maxSize int) (int32, []byte, error) {
	length, err := readVarInt(r)
	if err != nil {
		return 0, nil, err
	}
	if length <= 0 {
		return 0, nil, fmt.Errorf("invalid packet length %d", length)
	}
	if int(length) > maxSize {
		return 0, nil, errPacketTooLong
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return 0, nil, err
	}

	fr := bytes.NewReader(frame)
	id, err := readVarInt(fr)
	if err != nil {
		return 0, nil, err
	}
	return id, frame[len(frame)-fr.Len():], nil
}

func appendUint16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendInt64(b []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(b, uint64(v))
}
