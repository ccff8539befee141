package tokenizer

import (
	"strings"

	"github.com/shapestone/shape-core/pkg/tokenizer"
)

// NewTokenizer creates a tokenizer for cookie header values.
// Whitespace is kept as tokens because it is significant inside values and
// must be trimmed only around names and values.
func NewTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		tokenizer.StringMatcherFunc(TokenSemicolon, ";"),
		tokenizer.StringMatcherFunc(TokenEquals, "="),
		SpaceMatcher(),
		TextMatcher(),
	)
}

// NewTokenizerWithStream creates a cookie tokenizer over a pre-configured stream.
func NewTokenizerWithStream(stream tokenizer.Stream) tokenizer.Tokenizer {
	tok := NewTokenizer()
	tok.InitializeFromStream(stream)
	return tok
}

// SpaceMatcher matches a run of spaces and horizontal tabs.
func SpaceMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok || (r != ' ' && r != '\t') {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenSpace, value)
	}
}

// TextMatcher matches everything up to a separator or whitespace.
func TextMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok || r == ';' || r == '=' || r == ' ' || r == '\t' {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenText, value)
	}
}

// Pair is one name[=value] element of a cookie string.
type Pair struct {
	Name     string
	Value    string
	HasValue bool // an '=' was present
}

// Pairs splits a cookie header value into its ';'-separated elements.
// Names and values are trimmed of surrounding whitespace; everything after
// the first '=' belongs to the value, including further '=' signs. Empty
// elements are skipped. Names and values are slices of s, so bytes that are
// not valid UTF-8 come through unchanged.
func Pairs(s string) []Pair {
	tok := NewTokenizer()
	tok.Initialize(s)
	tokens, eos := tok.Tokenize()

	// Token offsets count runes; the table maps them back to bytes of s.
	offsets := runeOffsets(s)
	bytePos := func(t tokenizer.Token) int {
		if n := t.Offset(); n >= 0 && n < len(offsets) {
			return offsets[n]
		}
		return len(s)
	}

	var pairs []Pair
	start, eq := 0, -1
	emit := func(end int) {
		var cur Pair
		if eq < 0 {
			cur.Name = strings.TrimSpace(s[start:end])
		} else {
			cur.Name = strings.TrimSpace(s[start:eq])
			cur.Value = strings.Trim(s[eq+1:end], " \t")
			cur.HasValue = true
		}
		if cur.Name != "" || cur.HasValue {
			pairs = append(pairs, cur)
		}
	}
	for _, t := range tokens {
		switch t.Kind() {
		case TokenSemicolon:
			pos := bytePos(t)
			emit(pos)
			start, eq = pos+1, -1
		case TokenEquals:
			if eq < 0 {
				eq = bytePos(t)
			}
		}
	}
	if !eos {
		// The tokenizer stopped early; split the untokenized tail by hand.
		tail := 0
		if n := len(tokens); n > 0 {
			last := tokens[n-1]
			if end := last.Offset() + len(last.Value()); end < len(offsets) {
				tail = offsets[end]
			} else {
				tail = len(s)
			}
		}
		for i := tail; i < len(s); i++ {
			switch s[i] {
			case ';':
				emit(i)
				start, eq = i+1, -1
			case '=':
				if eq < 0 {
					eq = i
				}
			}
		}
	}
	emit(len(s))
	return pairs
}

// runeOffsets returns the byte offset of every rune of s, counting each
// invalid byte as one rune the way []rune(s) does, followed by len(s).
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}
