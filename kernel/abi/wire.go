package abi

import (
	"bytes"
	"encoding/binary"

	"github.com/codyd51/axle-sub001/kernel"
	"github.com/codyd51/axle-sub001/kernel/amc"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	// NameSize is the size of the NUL-padded service name fields in a
	// message header.
	NameSize = 64

	// HeaderSize is the size of the fixed message header: source and
	// destination names followed by the little-endian body length.
	HeaderSize = 2*NameSize + 4
)

var (
	errMalformedName    = &kernel.Error{Module: "abi", Message: "malformed service name"}
	errTruncatedMessage = &kernel.Error{Module: "abi", Message: "message buffer shorter than its header"}
	errBodyOverrun      = &kernel.Error{Module: "abi", Message: "message body length exceeds buffer"}
	errNameTooLong      = &kernel.Error{Module: "abi", Message: "service name does not fit in a message header"}

	errDestinationMismatch = &kernel.Error{Module: "abi", Message: "message header names a different destination"}
)

// DecodeName turns a NUL-terminated service name into a string. The name
// must be non-empty, terminated within raw and valid UTF-8.
func DecodeName(raw []byte) (string, *kernel.Error) {
	end := bytes.IndexByte(raw, 0)
	if end <= 0 {
		return "", errMalformedName
	}

	name, _, err := transform.Bytes(encoding.UTF8Validator, raw[:end])
	if err != nil {
		return "", errMalformedName
	}

	return string(name), nil
}

// EncodeName returns name as a NUL-terminated byte string.
func EncodeName(name string) []byte {
	out := make([]byte, len(name)+1)
	copy(out, name)
	return out
}

// DecodeMessage parses a message in the kernel wire layout and returns its
// destination and the decoded envelope. The envelope body aliases buf.
func DecodeMessage(buf []byte) (string, *amc.Message, *kernel.Error) {
	if len(buf) < HeaderSize {
		return "", nil, errTruncatedMessage
	}

	source, err := DecodeName(buf[:NameSize])
	if err != nil {
		return "", nil, err
	}

	dest, err := DecodeName(buf[NameSize : 2*NameSize])
	if err != nil {
		return "", nil, err
	}

	bodyLen := uint64(binary.LittleEndian.Uint32(buf[2*NameSize:]))
	if bodyLen > uint64(len(buf)-HeaderSize) {
		return "", nil, errBodyOverrun
	}

	body := buf[HeaderSize : HeaderSize+int(bodyLen) : HeaderSize+int(bodyLen)]
	return dest, amc.NewMessage(source, body), nil
}

// EncodeMessage lays out a message from source to dest in the kernel wire
// format.
func EncodeMessage(source, dest string, body []byte) ([]byte, *kernel.Error) {
	if len(source) == 0 || len(dest) == 0 {
		return nil, errMalformedName
	}
	if len(source) >= NameSize || len(dest) >= NameSize {
		return nil, errNameTooLong
	}

	buf := make([]byte, HeaderSize+len(body))
	copy(buf, source)
	copy(buf[NameSize:], dest)
	binary.LittleEndian.PutUint32(buf[2*NameSize:], uint32(len(body)))
	copy(buf[HeaderSize:], body)
	return buf, nil
}
