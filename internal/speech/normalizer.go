package speech

import "strings"

// The two transforms below look similar but serve different call sites and
// keep deliberately different symbol tables. NormalizeReply cleans free-form
// chat replies and keeps sentence punctuation; CleanMathExpression is the
// stricter variant for recognized expressions and strips punctuation the
// speech provider would read out loud. Do not unify them.

// markdownTokens are control sequences stripped before symbol replacement.
var markdownTokens = []string{"```", "`", "**", "*", "__", "_", "~~", "#", "> "}

type replacement struct {
	symbol string
	spoken string
}

// replyReplacements maps symbols in chat replies to spoken phrases.
// Order matters: multi-character symbols must run before their prefixes
// ("->" before "-", "=>" before "=").
var replyReplacements = []replacement{
	{"->", " to "},
	{"=>", " leads to "},
	{"≤", " less than or equal to "},
	{"≥", " greater than or equal to "},
	{"≠", " not equal to "},
	{"≈", " approximately "},
	{"^", " to the power of "},
	{"=", " equals "},
	{"+", " plus "},
	{"-", " minus "},
	{"/", " over "},
	{"(", " "},
	{")", " "},
	{"[", " "},
	{"]", " "},
	{"{", " "},
	{"}", " "},
}

// mathReplacements is the larger table for recognized math expressions.
// It additionally covers Greek letters, calculus operators and comparison
// symbols, and removes punctuation entirely.
var mathReplacements = []replacement{
	{"^", " to the power of "},
	{"²", " squared "},
	{"³", " cubed "},
	{"√", " square root of "},
	{"∫", " integral of "},
	{"∑", " sum of "},
	{"∂", " partial derivative of "},
	{"π", " pi "},
	{"α", " alpha "},
	{"β", " beta "},
	{"γ", " gamma "},
	{"δ", " delta "},
	{"ε", " epsilon "},
	{"θ", " theta "},
	{"λ", " lambda "},
	{"μ", " mu "},
	{"σ", " sigma "},
	{"φ", " phi "},
	{"ψ", " psi "},
	{"ω", " omega "},
	{"∞", " infinity "},
	{"≤", " less than or equal to "},
	{"≥", " greater than or equal to "},
	{"≠", " not equal to "},
	{"≈", " approximately equal to "},
	{"±", " plus or minus "},
	{"×", " times "},
	{"÷", " divided by "},
	{"=", " equals "},
	{"+", " plus "},
	{"-", " minus "},
	{"(", " "},
	{")", " "},
	{"[", " "},
	{"]", " "},
	{"{", " "},
	{"}", " "},
	{",", " "},
	{".", " "},
	{":", " "},
	{";", " "},
}

// EmptyExpressionFallback is spoken when a cleaned expression is empty.
// Sending empty text to the provider fails outright.
const EmptyExpressionFallback = "No mathematical expression detected"

// NormalizeReply makes arbitrary model output safe for speech synthesis:
// markdown markers are stripped, symbols become spoken words, anything
// outside printable ASCII (emoji, control characters) is dropped, and
// whitespace is collapsed. Empty input yields empty output.
func NormalizeReply(text string) string {
	if text == "" {
		return ""
	}

	s := text
	for _, token := range markdownTokens {
		s = strings.ReplaceAll(s, token, " ")
	}
	for _, r := range replyReplacements {
		s = strings.ReplaceAll(s, r.symbol, r.spoken)
	}
	s = keepPrintableASCII(s)
	return collapseWhitespace(s)
}

// CleanMathExpression converts a recognized math expression into natural
// spoken text. A result that cleans down to nothing is replaced with
// EmptyExpressionFallback.
func CleanMathExpression(expr string) string {
	s := expr
	for _, r := range mathReplacements {
		s = strings.ReplaceAll(s, r.symbol, r.spoken)
	}
	s = collapseWhitespace(s)

	// Prefer "squared"/"cubed" over the generic exponent phrasing. This
	// must run after the "^" replacement so both substrings line up.
	s = strings.ReplaceAll(s, "to the power of 2", "squared")
	s = strings.ReplaceAll(s, "to the power of 3", "cubed")
	s = collapseWhitespace(s)

	if s == "" {
		return EmptyExpressionFallback
	}
	return s
}

// keepPrintableASCII drops every rune outside the printable ASCII range
// except newline. This removes emoji and most non-Latin symbols; it is a
// lossy filter and will corrupt non-English text.
func keepPrintableASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if (ch >= 32 && ch <= 126) || ch == '\n' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
