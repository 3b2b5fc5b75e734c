package ffmpeg

import (
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// lineDecoder turns raw encoder output into UTF-8 text. Valid UTF-8 passes
// through; anything else goes through the fallback local encoding, and
// whatever is still invalid becomes U+FFFD. It never fails.
type lineDecoder struct {
	fallback *encoding.Decoder
}

// newLineDecoder resolves name through the WHATWG encoding index. An empty
// name selects the platform default (GBK on Windows, none elsewhere);
// unknown names disable the fallback.
func newLineDecoder(name string) *lineDecoder {
	if name == "" {
		name = defaultLocalEncoding()
	}
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return &lineDecoder{}
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return &lineDecoder{}
	}
	return &lineDecoder{fallback: enc.NewDecoder()}
}

func defaultLocalEncoding() string {
	if runtime.GOOS == "windows" {
		return "gbk"
	}
	return ""
}

func (d *lineDecoder) decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if d.fallback != nil {
		if out, err := d.fallback.Bytes(raw); err == nil {
			return strings.ToValidUTF8(string(out), "�")
		}
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// ValidEncoding reports whether name is empty or resolvable as a fallback
// encoding. Used by config validation.
func ValidEncoding(name string) bool {
	if name == "" {
		return true
	}
	_, err := htmlindex.Get(name)
	return err == nil
}
