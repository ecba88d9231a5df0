package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicDetector_EmptyInput_ReturnsUnknown(t *testing.T) {
	d := NewHeuristicDetector()

	det, err := d.Detect(context.Background(), "   ")

	require.NoError(t, err)
	assert.Equal(t, "unknown", det.Lang)
	assert.Equal(t, 0.0, det.Confidence)
}

func TestHeuristicDetector_English(t *testing.T) {
	d := NewHeuristicDetector()

	det, err := d.Detect(context.Background(), "The quick brown fox and the lazy dog that was with him")

	require.NoError(t, err)
	assert.Equal(t, "en", det.Lang)
	assert.Greater(t, det.Confidence, 0.0)
}

func TestHeuristicDetector_Ukrainian(t *testing.T) {
	d := NewHeuristicDetector()

	det, err := d.Detect(context.Background(), "Це речення написане українською мовою і містить її букви")

	require.NoError(t, err)
	assert.Equal(t, "uk", det.Lang)
}

func TestHeuristicDetector_Russian(t *testing.T) {
	d := NewHeuristicDetector()

	det, err := d.Detect(context.Background(), "Это предложение написано на русском языке и не содержит украинских букв")

	require.NoError(t, err)
	assert.Equal(t, "ru", det.Lang)
}

func TestHeuristicDetector_UnrecognizedScript_FallsBackToEnglish(t *testing.T) {
	d := NewHeuristicDetector()

	det, err := d.Detect(context.Background(), "一二三四五六七八九十")

	require.NoError(t, err)
	assert.Equal(t, "en", det.Lang)
	assert.Equal(t, 0.3, det.Confidence)
	assert.Equal(t, "fallback", det.Method)
}

func TestHeuristicDetector_DetectFromName(t *testing.T) {
	d := NewHeuristicDetector()

	cases := []struct {
		name     string
		wantLang string
		wantOK   bool
	}{
		{"report_uk.txt", "uk", true},
		{"report_en.md", "en", true},
		{"summary_ru.docx", "ru", true},
		{"notes.txt", "", false},
		{"archive_zh.pdf", "zh", true},
	}

	for _, tc := range cases {
		gotLang, gotOK := d.DetectFromName(tc.name)
		assert.Equal(t, tc.wantOK, gotOK, tc.name)
		assert.Equal(t, tc.wantLang, gotLang, tc.name)
	}
}

func TestHeuristicDetector_Probabilities_SumCloseToOne(t *testing.T) {
	d := NewHeuristicDetector()

	det, err := d.Detect(context.Background(), "The cat and the dog are in the house with the man")

	require.NoError(t, err)
	var sum float64
	for _, p := range det.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestHeuristicDetector_ImplementsDetectorInterface(t *testing.T) {
	var _ Detector = NewHeuristicDetector()
}
