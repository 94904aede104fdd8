package fetch

import (
	"errors"
	"testing"
)

// TestDecodeChunkedBody tests chunked transfer decoding.
func TestDecodeChunkedBody(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "well-formed multi-chunk body",
			input: "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n",
			want:  "hello world",
		},
		{
			name:  "single chunk",
			input: "4\r\nwiki\r\n0\r\n\r\n",
			want:  "wiki",
		},
		{
			name:  "empty input decodes to empty body",
			input: "",
			want:  "",
		},
		{
			name:  "zero chunk only",
			input: "0\r\n\r\n",
			want:  "",
		},
		{
			name:  "trailers after zero chunk are ignored",
			input: "4\r\nwiki\r\n0\r\nExpires: never\r\n\r\n",
			want:  "wiki",
		},
		{
			name:  "uppercase hex size",
			input: "A\r\n0123456789\r\n0\r\n\r\n",
			want:  "0123456789",
		},
		{
			name:  "whitespace around size is tolerated",
			input: " 5 \r\nhello\r\n0\r\n\r\n",
			want:  "hello",
		},
		{
			name:  "input ending without zero chunk decodes available chunks",
			input: "5\r\nhello\r\n",
			want:  "hello",
		},
		{
			name:    "truncated payload",
			input:   "a\r\nhello",
			wantErr: ErrIncompleteChunk,
		},
		{
			name:    "size larger than remaining data",
			input:   "ff\r\nshort\r\n0\r\n\r\n",
			wantErr: ErrIncompleteChunk,
		},
		{
			name:    "non-hex size line",
			input:   "zz\r\nhello\r\n0\r\n\r\n",
			wantErr: ErrMalformedChunkSize,
		},
		{
			name:    "chunk extension is rejected",
			input:   "5;name=value\r\nhello\r\n0\r\n\r\n",
			wantErr: ErrMalformedChunkSize,
		},
		{
			name:    "unterminated size line",
			input:   "5",
			wantErr: ErrMalformedChunkSize,
		},
		{
			name:    "empty size line",
			input:   "\r\nhello\r\n0\r\n\r\n",
			wantErr: ErrMalformedChunkSize,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeChunkedBody([]byte(tc.input))

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("decoded %q, expected %q", string(got), tc.want)
			}
		})
	}
}
