package tabular

// encoding.go turns text input of unknown encoding into clean UTF-8.
//
// Spreadsheets exported from Windows tools regularly arrive as UTF-16 with a
// byte order mark or as Windows-1252. Both are decoded here; anything that is
// already valid UTF-8 passes through with only the BOM removed.

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText returns data as UTF-8 with any byte order mark removed.
func decodeText(data []byte) (string, error) {
	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(data, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case !utf8.Valid(data):
		dec = charmap.Windows1252.NewDecoder()
	}

	if dec == nil {
		return string(data), nil
	}

	out, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}
