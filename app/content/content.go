// Package content derives plain text and a lead image from HTML carried in
// feed fields.
//
// Both functions are pattern based approximations for simple inline markup.
// They are not HTML parsers: nested or broken markup may leave stray tags in
// the plain text.
package content

import (
	"net/url"
	"regexp"
)

var (
	lineBreakPattern = regexp.MustCompile(`<br\s*/>`)
	tagPairPattern   = regexp.MustCompile(`<[^<>]+>([^<>]*)<[^<>]+>`)
	imagePattern     = regexp.MustCompile(`<img[^>]+src\s*=\s*['"]([^'"]+)['"][^>]*>`)
)

// PlainText strips self-closing line breaks and then tag pairs around inline
// text. It reports false when there is nothing to project.
func PlainText(encoded string) (text string, ok bool) {
	if encoded == "" {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()

	text = lineBreakPattern.ReplaceAllString(encoded, "")
	text = tagPairPattern.ReplaceAllString(text, "${1}")
	return text, true
}

// FirstImage returns the src of the first img element whose value is single
// or double quoted and parses as a URL.
func FirstImage(encoded string) (string, bool) {
	m := imagePattern.FindStringSubmatch(encoded)
	if m == nil {
		return "", false
	}

	u, err := url.Parse(m[1])
	if err != nil {
		return "", false
	}
	return u.String(), true
}
