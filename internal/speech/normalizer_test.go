package speech

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text unchanged", "What do you think comes next?", "What do you think comes next?"},
		{"markdown stripped", "**Bold** and `code` and # heading", "Bold and code and heading"},
		{"equation spoken", "x = 5 + 3", "x equals 5 plus 3"},
		{"arrow before minus", "a -> b - c", "a to b minus c"},
		{"exponent", "x^2", "x to the power of 2"},
		{"emoji dropped", "Nice work! 🎉", "Nice work!"},
		{"whitespace collapsed", "a   b\t\tc", "a b c"},
		{"brackets removed", "(x + 1)", "x plus 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeReply(tt.in))
		})
	}
}

func TestNormalizeReplyASCIIOnly(t *testing.T) {
	out := NormalizeReply("θ = π/4 🚀 done")
	for _, ch := range out {
		assert.True(t, ch >= 32 && ch <= 126, "non-ASCII rune %q survived", ch)
	}
}

func TestCleanMathExpression(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple sum", "2 + 2 = 4", "2 plus 2 equals 4"},
		{"squared", "x^2 + 1", "x squared plus 1"},
		{"cubed", "y^3", "y cubed"},
		{"higher power kept", "x^4", "x to the power of 4"},
		{"unicode squared", "x² = 9", "x squared equals 9"},
		{"square root", "√16 = 4", "square root of 16 equals 4"},
		{"greek", "π ≈ 3", "pi approximately equal to 3"},
		{"punctuation removed", "f(x) = x, y; z.", "f x equals x y z"},
		{"times and divide", "6 × 7 ÷ 2", "6 times 7 divided by 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMathExpression(tt.in))
		})
	}
}

func TestCleanMathExpressionNeverSaysPowerOfTwo(t *testing.T) {
	out := CleanMathExpression("a^2 + b^2 = c^2")
	assert.NotContains(t, out, "to the power of 2")
	assert.Equal(t, 3, strings.Count(out, "squared"))
}

func TestCleanMathExpressionEmptyFallback(t *testing.T) {
	assert.Equal(t, EmptyExpressionFallback, CleanMathExpression(""))
	assert.Equal(t, EmptyExpressionFallback, CleanMathExpression("()[]{}.,:;"))
}
