package util

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8Bytes 非 UTF-8 的回显按常见编码依次尝试解码；全部失败时原样返回
func EnsureUTF8Bytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	// 国内设备常见 GBK/GB18030 回显
	encs := []encoding.Encoding{
		simplifiedchinese.GB18030,
		simplifiedchinese.GBK,
		traditionalchinese.Big5,
		charmap.Windows1252,
		charmap.ISO8859_1,
	}
	for _, enc := range encs {
		if s, ok := tryDecode(enc, b); ok {
			return s
		}
	}
	return string(b)
}

// EnsureUTF8 字符串版本
func EnsureUTF8(s string) string {
	return EnsureUTF8Bytes([]byte(s))
}

func tryDecode(enc encoding.Encoding, b []byte) (string, bool) {
	reader := transform.NewReader(bytes.NewReader(b), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", false
	}
	if utf8.Valid(decoded) {
		return string(decoded), true
	}
	return "", false
}

var (
	ansiRe  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	pagerRe = regexp.MustCompile(`(?i)[ \t]*-{2,} ?more ?-{2,}[ \t\x08]*`)
)

// NormalizeOutput 统一回显：UTF-8、去除终端控制序列与分页提示、统一换行、去除行尾空白
func NormalizeOutput(raw []byte) string {
	s := EnsureUTF8Bytes(raw)
	s = ansiRe.ReplaceAllString(s, "")
	s = pagerRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t\x08")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
