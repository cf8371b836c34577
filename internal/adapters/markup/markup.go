// Package markup strips HTML, XML and similar tag soup from input text before
// matching, using the golang.org/x/net/html tokenizer. Tags become blanks so
// license words split across markup still line up; line breaks inside tags
// are kept so reported line numbers refer to the original file.
package markup

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Extensions are always treated as markup.
var Extensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
	".php":   true,
	".phps":  true,
	".jsp":   true,
	".jspx":  true,
	".xml":   true,
	".pom":   true,
}

// keptTags are substrings of tag names whose name is kept as a word: these
// tags tend to label the very text being looked for (<license>, <copyright>,
// <author>...).
var keptTags = []string{"lic", "copy", "auth", "contr", "leg", "inc"}

const (
	minSize  = 64
	headSize = 1024
	tagRatio = 0.05
	maxImbal = 0.2
)

// IsMarkup reports whether content at path looks like markup: a known
// extension, a leading '<', or a balanced share of '<' and '>' in the first
// KB. Small files are never markup.
func IsMarkup(path string, content []byte) bool {
	if len(content) < minSize {
		return false
	}
	if Extensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}

	head := content
	if len(head) > headSize {
		head = head[:headSize]
	}
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) > 0 && head[0] == '<' {
		return true
	}

	var open, closing, nonSpace int
	for _, c := range head {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '<':
			open++
		case '>':
			closing++
		}
		nonSpace++
	}
	if open == 0 || closing == 0 {
		return false
	}
	hasTags := float64(open+closing)/float64(nonSpace) > tagRatio
	ratio := float64(closing) / float64(open)
	balanced := ratio > 1-maxImbal && ratio < 1+maxImbal
	return hasTags && balanced
}

// Strip returns text with markup removed. Text nodes and comment bodies are
// kept, entities are decoded, and every other token is replaced by the line
// breaks it spans.
func Strip(text string) string {
	z := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	b.Grow(len(text))

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// The tokenizer only fails on read errors; keep what is left.
				b.Write(z.Raw())
			}
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.CommentToken:
			b.WriteByte(' ')
			b.Write(z.Text())
			b.WriteByte(' ')
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Raw must be read before TagName, which lowercases in place.
			lines := bytes.Count(z.Raw(), []byte{'\n'})
			name, _ := z.TagName()
			b.WriteByte(' ')
			if isKept(name) {
				b.Write(name)
				b.WriteByte(' ')
			}
			b.WriteString(strings.Repeat("\n", lines))
		default:
			b.WriteByte(' ')
			b.WriteString(strings.Repeat("\n", bytes.Count(z.Raw(), []byte{'\n'})))
		}
	}
}

func isKept(name []byte) bool {
	lower := strings.ToLower(string(name))
	for _, k := range keptTags {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
