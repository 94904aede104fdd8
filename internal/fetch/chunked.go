package fetch

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// crlf separates chunk size lines from payloads.
var crlf = []byte("\r\n")

// DecodeChunkedBody reassembles a Transfer-Encoding: chunked payload into
// the plain body bytes.
//
// The decoder walks size-line/payload pairs until the terminating zero-size
// chunk or the end of input. Trailers after the zero chunk are ignored.
// Empty input decodes to an empty body.
func DecodeChunkedBody(data []byte) ([]byte, error) {
	var body []byte
	pos := 0

	for pos < len(data) {
		lineEnd := bytes.Index(data[pos:], crlf)
		if lineEnd == -1 {
			return nil, fmt.Errorf("%w: unterminated chunk size line", ErrMalformedChunkSize)
		}

		sizeLine := strings.TrimSpace(string(data[pos : pos+lineEnd]))
		size64, err := strconv.ParseUint(sizeLine, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedChunkSize, sizeLine)
		}
		size := int(size64)

		// The zero chunk ends the body; anything after it is trailers.
		if size == 0 {
			break
		}

		pos += lineEnd + len(crlf)
		if pos+size > len(data) {
			return nil, fmt.Errorf("%w: chunk of %d bytes exceeds remaining %d", ErrIncompleteChunk, size, len(data)-pos)
		}

		body = append(body, data[pos:pos+size]...)
		pos += size + len(crlf) // skip payload and its trailing CRLF
	}

	return body, nil
}
