package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"asset-manager/internal/logging"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// errNotPNG reports a stream that does not start with the PNG signature.
var errNotPNG = errors.New("not a PNG stream")

// maxTextChunk bounds how much chunk data is read into memory; generation
// workflows are large JSON blobs but stay well under this.
const maxTextChunk = 16 << 20

// readTextChunks walks the PNG chunk stream and returns the decoded
// textual metadata as a key/value map. Image data chunks are skipped
// without buffering. A malformed individual chunk is dropped rather than
// failing the walk.
func readTextChunks(r io.Reader) (map[string]string, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, errNotPNG
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errNotPNG
	}

	text := make(map[string]string)
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			// Truncated streams still yield whatever was read so far.
			return text, nil
		}
		length := binary.BigEndian.Uint32(header[:4])
		typ := string(header[4:8])

		switch typ {
		case "tEXt", "zTXt", "iTXt":
			if length > maxTextChunk {
				return text, fmt.Errorf("oversized %s chunk (%d bytes)", typ, length)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return text, nil
			}
			if key, value, err := decodeTextChunk(typ, data); err != nil {
				logging.Debug("dropping malformed %s chunk: %v", typ, err)
			} else {
				text[key] = value
			}
		case "IEND":
			return text, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return text, nil
			}
		}

		// CRC trailer; not verified here, decoding is the codec's job.
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return text, nil
		}
	}
}

// decodeTextChunk decodes one textual chunk into its keyword and value.
//
// Layouts:
//
//	tEXt: keyword \0 text
//	zTXt: keyword \0 method(1) zlib(text)
//	iTXt: keyword \0 compressed(1) method(1) language \0 translated \0 text
func decodeTextChunk(typ string, data []byte) (string, string, error) {
	null := bytes.IndexByte(data, 0)
	if null <= 0 {
		return "", "", errors.New("missing keyword terminator")
	}
	key := string(data[:null])
	rest := data[null+1:]

	switch typ {
	case "tEXt":
		return key, string(rest), nil

	case "zTXt":
		if len(rest) < 1 {
			return "", "", errors.New("truncated zTXt chunk")
		}
		value, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		return key, value, nil

	case "iTXt":
		if len(rest) < 2 {
			return "", "", errors.New("truncated iTXt chunk")
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		for i := 0; i < 2; i++ {
			n := bytes.IndexByte(rest, 0)
			if n < 0 {
				return "", "", errors.New("truncated iTXt header")
			}
			rest = rest[n+1:]
		}
		if compressed {
			value, err := inflate(rest)
			if err != nil {
				return "", "", err
			}
			return key, value, nil
		}
		return key, string(rest), nil
	}

	return "", "", fmt.Errorf("unsupported chunk type %s", typ)
}

func inflate(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxTextChunk))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
