package xlock

import (
	"iter"
	"regexp"
	"strings"
)

// placeholderPattern 惰性匹配最近的 }，不跨行
var placeholderPattern = regexp.MustCompile(`\{(.*?)}`)

// Placeholder 模板中的一个占位符。
type Placeholder struct {
	// Start 和 End 为 Span 在模板中的字节区间 [Start, End)。
	Start int
	End   int
	// Span 含花括号的完整匹配，例如 "{order.id}"。
	Span string
	// Token 花括号内的文本，"{}" 的 Token 为空串。
	Token string
}

// Placeholders 按从左到右的顺序惰性产出模板中互不重叠的占位符。
// 不成对的花括号不构成匹配，原样保留，从不报错。
func Placeholders(template string) iter.Seq[Placeholder] {
	return func(yield func(Placeholder) bool) {
		offset := 0
		for offset <= len(template) {
			loc := placeholderPattern.FindStringSubmatchIndex(template[offset:])
			if loc == nil {
				return
			}
			p := Placeholder{
				Start: offset + loc[0],
				End:   offset + loc[1],
				Token: template[offset+loc[2] : offset+loc[3]],
			}
			p.Span = template[p.Start:p.End]
			if !yield(p) {
				return
			}
			offset = p.End
		}
	}
}

// Substitute 单遍替换模板中的所有占位符。
// 替换结果不会被再次扫描，值中包含的 "{x}" 原样保留。
func Substitute(template string, replace func(token string) string) string {
	var (
		b    strings.Builder
		last int
	)
	for p := range Placeholders(template) {
		b.WriteString(template[last:p.Start])
		b.WriteString(replace(p.Token))
		last = p.End
	}
	if last == 0 {
		return template
	}
	b.WriteString(template[last:])
	return b.String()
}
