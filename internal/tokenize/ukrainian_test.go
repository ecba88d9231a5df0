package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUkrainianTokenizer_Normalize_CollapsesWhitespace(t *testing.T) {
	tok := NewUkrainianTokenizer()

	got := tok.Normalize("Привіт   світ\n\nце    тест")

	assert.Equal(t, "Привіт світ це тест", got)
}

func TestUkrainianTokenizer_IsProtected_CompoundTerm(t *testing.T) {
	tok := NewUkrainianTokenizer()

	assert.True(t, tok.IsProtected("це державно-приватне партнерство"))
}

func TestUkrainianTokenizer_IsProtected_CompoundTermWithDashVariant(t *testing.T) {
	tok := NewUkrainianTokenizer()

	normalized := tok.Normalize("соціально–економічний розвиток")

	assert.True(t, tok.IsProtected(normalized))
}

func TestUkrainianTokenizer_IsProtected_Name(t *testing.T) {
	tok := NewUkrainianTokenizer()

	assert.True(t, tok.IsProtected("Тарас Шевченко написав цей вірш"))
}

func TestUkrainianTokenizer_IsProtected_NamePattern(t *testing.T) {
	tok := NewUkrainianTokenizer()

	assert.True(t, tok.IsProtected("Михайло Грушевський був істориком"))
}

func TestUkrainianTokenizer_IsProtected_OrdinaryPhraseIsNotProtected(t *testing.T) {
	tok := NewUkrainianTokenizer()

	assert.False(t, tok.IsProtected("це звичайний текст без захищених фраз"))
}

func TestUkrainianTokenizer_Sentences_DiscardsShortFragments(t *testing.T) {
	tok := NewUkrainianTokenizer()

	sentences := tok.Sentences("Перше речення. Т. Друге речення тут.")

	assert.Equal(t, []string{"Перше речення.", "Друге речення тут."}, sentences)
}

func TestUkrainianTokenizer_Language(t *testing.T) {
	assert.Equal(t, "uk", NewUkrainianTokenizer().Language())
}

func TestUkrainianTokenizer_Separators_NotEmpty(t *testing.T) {
	assert.NotEmpty(t, NewUkrainianTokenizer().Separators())
}
