// Package tokenizer lexes Cookie and Set-Cookie header values using Shape's
// tokenizer framework.
package tokenizer

// Token kinds produced for cookie header values.
// A cookie string is a ';'-separated list of name[=value] pairs, so the lexer
// only needs to tell separators apart from text.
const (
	TokenSemicolon = "Semicolon" // ;
	TokenEquals    = "Equals"    // =
	TokenSpace     = "Space"     // run of SP / HTAB
	TokenText      = "Text"      // anything else
)
