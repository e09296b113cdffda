package raw

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// TextString encodes s as a PDF text string. Plain ASCII is stored as is;
// anything else is written as UTF-16BE with a byte order mark.
func TextString(s string) StringObj {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return Str([]byte(s))
	}
	b, err := utf16be.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return Str([]byte(s))
	}
	return Str(b)
}

// DecodeText converts PDF text string bytes to UTF-8. UTF-16BE and UTF-8
// byte order marks are honoured; everything else is read as Latin-1, which
// matches PDFDocEncoding for the printable range.
func DecodeText(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		out, err := utf16be.NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		return string(b[3:])
	}
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
