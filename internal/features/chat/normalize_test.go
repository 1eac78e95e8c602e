package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"нижний регистр", "Привет МИР", "привет мир"},
		{"схлопывание пробелов", "привет   мир", "привет мир"},
		{"табы и переводы строк", " привет\tмир\n", "привет мир"},
		{"пустая строка", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestContentHashIgnoresFormatting(t *testing.T) {
	// Регистр и лишние пробелы не должны обходить анти-дубликат.
	assert.Equal(t, ContentHash("Привет  МИР"), ContentHash("привет мир"))
	assert.NotEqual(t, ContentHash("привет мир"), ContentHash("привет мир!"))
}
