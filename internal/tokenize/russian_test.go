package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRussianTokenizer_Normalize_CollapsesWhitespace(t *testing.T) {
	tok := NewRussianTokenizer()

	got := tok.Normalize("привет   мир\n\nэто    тест")

	assert.Equal(t, "привет мир это тест", got)
}

func TestRussianTokenizer_IsProtected_AlwaysFalse(t *testing.T) {
	tok := NewRussianTokenizer()

	assert.False(t, tok.IsProtected("Александр Сергеевич Пушкин"))
}

func TestRussianTokenizer_Sentences_SplitsOnTerminators(t *testing.T) {
	tok := NewRussianTokenizer()

	sentences := tok.Sentences("Первое предложение. Второе предложение.")

	assert.Equal(t, []string{"Первое предложение.", "Второе предложение."}, sentences)
}

func TestRussianTokenizer_Language(t *testing.T) {
	assert.Equal(t, "ru", NewRussianTokenizer().Language())
}
