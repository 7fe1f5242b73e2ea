// Package narrative formats the numbers and markdown used in section
// summaries.
package narrative

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
)

// Percent formats a fraction as a percentage with the given number of
// decimals: Percent(0.8, 0) == "80%".
func Percent(frac float64, decimals int) string {
	return strconv.FormatFloat(frac*100, 'f', decimals, 64) + "%"
}

// SignedPercent is Percent with an explicit sign: "+15.0%", "-2.5%".
func SignedPercent(frac float64, decimals int) string {
	s := Percent(frac, decimals)
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}

// Thousands formats n with comma thousands separators.
func Thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var sb strings.Builder
	pre := n % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
		sb.WriteByte(',')
	}
	for i := pre; i < n; i += 3 {
		sb.WriteString(s[i : i+3])
		if i+3 < n {
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

// Bold wraps s in markdown emphasis markers.
func Bold(s string) string {
	return "**" + s + "**"
}

// Join lists items in prose: "a", "a and b", "a, b and c".
func Join(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

// List renders items as a markdown bullet list.
func List(items ...string) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(it)
	}
	return sb.String()
}

// Plain strips emphasis markers for surfaces that cannot show them.
func Plain(md string) string {
	return strings.ReplaceAll(md, "**", "")
}

// HTML converts markdown to an HTML fragment.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
