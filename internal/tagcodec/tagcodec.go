// Package tagcodec shields inline Discord tokens (mentions, channel links,
// custom emoji, timestamps) from a translation pass by swapping them for
// numbered placeholders and restoring them afterwards.
package tagcodec

import (
	"regexp"
	"strconv"
	"strings"
)

// tagPattern matches Discord's inline token grammar:
//
//	<@123> <@!123> <@&123>   user and role mentions
//	<#123>                   channel links
//	<:name:123> <a:name:123> custom emoji
//	</cmd sub:123>           slash command mentions
//	<t:123> <t:123:R>        timestamps
//	<:0>                     placeholders minted by Encode
var tagPattern = regexp.MustCompile(`<(?:@[!&]?|#|/[\w -]+:|a?:[\w~]+:|:|t:)\d+(?::[tTdDfFR])?>`)

// Table maps a placeholder to the original token it replaced. A Table is
// valid for exactly one Encode/Decode round trip.
type Table map[string]string

// placeholder returns the n-th placeholder, itself a valid tagPattern match.
func placeholder(n int) string {
	return "<:" + strconv.Itoa(n) + ">"
}

// Encode replaces every protected token in text with a placeholder and
// returns the rewritten text with its table. Text without tokens is returned
// unchanged with an empty table.
func Encode(text string) (string, Table) {
	table := Table{}
	matches := tagPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, table
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for i, m := range matches {
		b.WriteString(text[last:m[0]])
		p := placeholder(i)
		table[p] = text[m[0]:m[1]]
		b.WriteString(p)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String(), table
}

// Decode restores tokens in text using table. Pattern-shaped substrings that
// are not in the table are dropped.
func Decode(text string, table Table) string {
	return tagPattern.ReplaceAllStringFunc(text, func(match string) string {
		return table[match]
	})
}

// Contains reports whether text holds a token-shaped substring equal to tok.
func Contains(text, tok string) bool {
	for _, m := range tagPattern.FindAllString(text, -1) {
		if m == tok {
			return true
		}
	}
	return false
}
