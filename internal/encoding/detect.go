package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var latin = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// Greek invoices commonly arrive as windows-1253 or ISO-8859-7.
var greek = map[string]encoding.Encoding{
	"ISO-8859-7":   charmap.ISO8859_7,
	"windows-1253": charmap.Windows1253,
}

// NewUTF8Reader detects the encoding of the input and returns a reader
// that decodes the content to UTF-8.
//
// Detection order:
//  1. BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. valid UTF-8 is returned as-is
//  3. heuristic detection via chardet
//  4. fallback to Windows-1252
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), nil
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		if result.Charset == "UTF-8" {
			return br, nil
		}

		if enc, ok := latin[result.Charset]; ok {
			return transform.NewReader(br, enc.NewDecoder()), nil
		}

		if enc, ok := greek[result.Charset]; ok && mostlyHighBytes(buf) {
			return transform.NewReader(br, enc.NewDecoder()), nil
		}
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
}

// mostlyHighBytes guards the Greek guess: Greek text is written almost
// entirely outside ASCII, while Latin text with a few accents is not.
func mostlyHighBytes(buf []byte) bool {
	high := 0

	for _, b := range buf {
		if b >= 0x80 {
			high++
		}
	}

	return high*3 >= len(buf)
}

// ToUTF8 decodes a whole text document, such as an XML invoice attachment.
func ToUTF8(data []byte) (string, error) {
	r, err := NewUTF8Reader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decoding: %w", err)
	}

	return string(out), nil
}
