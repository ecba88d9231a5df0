package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_GetKnownLanguage_ReturnsRegisteredTokenizer(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, "uk", r.Get("uk").Language())
	assert.Equal(t, "en", r.Get("en").Language())
	assert.Equal(t, "ru", r.Get("ru").Language())
}

func TestRegistry_GetUnknownLanguage_ReturnsDefault(t *testing.T) {
	r := NewRegistry()

	got := r.Get("zz")

	assert.Equal(t, "unknown", got.Language())
}

func TestRegistry_Register_IsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register(NewUkrainianTokenizer())
	r.Register(NewUkrainianTokenizer())

	assert.Equal(t, "uk", r.Get("uk").Language())
}

func TestRegistry_SupportedLanguages_IncludesBuiltins(t *testing.T) {
	r := NewRegistry()

	langs := r.SupportedLanguages()

	assert.Contains(t, langs, "uk")
	assert.Contains(t, langs, "en")
	assert.Contains(t, langs, "ru")
}

func TestRegistry_ConcurrentAccess_NoRace(t *testing.T) {
	r := NewRegistry()
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			r.Get("en")
			r.SupportedLanguages()
			r.Register(NewEnglishTokenizer())
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
