package driver

import (
	"regexp"
	"strings"
)

// Lines 按行切分回显（兼容 \r\n 与单独的 \r）
func Lines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(strings.ReplaceAll(raw, "\r", "\n"), "\n")
}

// FirstMatch 返回第一个匹配行的第一个分组
func FirstMatch(re *regexp.Regexp, raw string) (string, bool) {
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Sections 按顶格行切分配置块，缩进行归入上一块
func Sections(raw string, header *regexp.Regexp) map[string][]string {
	out := make(map[string][]string)
	var cur string
	in := false
	for _, ln := range Lines(raw) {
		if ln == "" {
			continue
		}
		if ln[0] != ' ' && ln[0] != '\t' {
			m := header.FindStringSubmatch(ln)
			in = len(m) > 1
			if in {
				cur = strings.TrimSpace(m[1])
				out[cur] = nil
			}
			continue
		}
		if in {
			out[cur] = append(out[cur], strings.TrimSpace(ln))
		}
	}
	return out
}
