package gamesession

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paddedWidth измеряет ширину подписи с учетом добивочных пробелов
// и символов нулевой ширины
func paddedWidth(s string) float64 {
	total := 0.0
outer:
	for _, r := range s {
		if r == '​' {
			continue
		}
		for _, p := range padRunes {
			if r == p.r {
				total += p.w
				continue outer
			}
		}
		if w, ok := charWidths[r]; ok {
			total += w
		} else {
			total += defaultCharWidth
		}
	}
	return total
}

func TestPadOptionLabels_EqualizesWidth(t *testing.T) {
	// Arrange
	labels := []string{"Да", "Определенно нет"}

	// Act
	padded := PadOptionLabels(labels)

	// Assert
	require.Len(t, padded, 2)
	shortWidth := paddedWidth(padded[0])
	longWidth := paddedWidth(padded[1])
	assert.InDelta(t, longWidth, shortWidth, 1.5, "ширины подписей после выравнивания должны почти совпадать")
}

func TestPadOptionLabels_WrapsInZeroWidthMarkers(t *testing.T) {
	padded := PadOptionLabels([]string{"A", "B"})
	for _, p := range padded {
		assert.True(t, strings.HasPrefix(p, "​"), "подпись должна начинаться с символа нулевой ширины")
		assert.True(t, strings.HasSuffix(p, "​"), "подпись должна заканчиваться символом нулевой ширины")
	}
}

func TestPadOptionLabels_PreservesOriginalText(t *testing.T) {
	labels := []string{"Вариант 1", "Вар 2"}
	padded := PadOptionLabels(labels)
	for i, p := range padded {
		assert.Contains(t, p, labels[i], "исходный текст подписи должен сохраниться")
	}
}

func TestPadOptionLabels_Empty(t *testing.T) {
	assert.Nil(t, PadOptionLabels(nil))
	assert.Nil(t, PadOptionLabels([]string{}))
}

func TestLabelWidth_UnknownRuneUsesDefault(t *testing.T) {
	// Символы вне таблицы считаются шириной по умолчанию
	assert.InDelta(t, defaultCharWidth, labelWidth("Ω"), 0.001)
}
