package gamesession

import (
	"math"
	"strings"
)

// Ширины символов шрифта кнопок в условных единицах.
// Неизвестные символы считаются шириной defaultCharWidth.
var charWidths = map[rune]float64{
	'0': 8.67, '1': 5, '2': 7.47, '3': 7.18, '4': 8.25,
	'5': 7.38, '6': 7.9, '7': 7.38, '8': 7.95, '9': 7.9,
	'a': 6.98, 'ą': 6.98, 'b': 7.45, 'c': 6.53, 'ć': 6.53,
	'd': 7.53, 'e': 6.98, 'ę': 6.98, 'f': 4.35, 'g': 7.05,
	'h': 7.38, 'i': 3.4, 'j': 3.4, 'k': 6.73, 'l': 3.4,
	'm': 11.42, 'n': 7.38, 'o': 7.38, 'ó': 7.38, 'p': 7.53,
	'q': 7.45, 'r': 5.02, 's': 6.18, 'ś': 6.18, 't': 4.72,
	'u': 7.38, 'v': 6.58, 'w': 10.1, 'x': 6.6, 'y': 6.77,
	'z': 6.32, 'ż': 6.32, 'ź': 6.32,
	'A': 9.63, 'Ą': 9.63, 'B': 7.63, 'C': 8.85, 'Ć': 8.85,
	'D': 9.83, 'E': 7.08, 'Ę': 7.08, 'F': 6.68, 'G': 9.75,
	'H': 9.83, 'I': 3.8, 'J': 5.17, 'K': 8.52, 'L': 6.55,
	'M': 12.6, 'N': 9.83, 'O': 10.43, 'Ó': 10.43, 'P': 7.5,
	'Q': 10.43, 'R': 7.98, 'S': 7.17, 'Ś': 7.17, 'T': 8.4,
	'U': 9.65, 'V': 9.47, 'W': 14.23, 'X': 8.9, 'Y': 8.9,
	'Z': 8.33, 'Ż': 8.33, 'Ź': 8.33,
	'/': 7.5, '*': 5.6, '-': 4.95, ',': 3.17, '.': 3.17,
	'_': 6.35, '?': 7.25, '!': 3.8, '#': 9.25, '@': 11.7,
	'$': 7.38, '%': 12.6, '^': 6.35, '&': 9.53, '=': 8.25,
	'<': 8, '>': 8, '\\': 7.5, '|': 3.72, '"': 5.72,
	'\'': 3.17, ';': 3.3, ':': 3.3, '{': 6.67, '}': 6.67,
	'[': 5.72, ']': 5.72, '(': 5.47, ')': 5.47, '~': 5.72,
	' ': 3.8,
}

const defaultCharWidth = 6.7

// Пробельные символы разной ширины, которыми добивается подпись.
// Порядок от широкого к узкому, чтобы подбор был жадным.
var padRunes = []struct {
	r rune
	w float64
}{
	{'　', 14},   // ideographic space
	{' ', 4.65}, // em space
	{' ', 3.5},  // en space
	{' ', 1.87}, // three-per-em space
	{' ', 1.05}, // hair space
}

// labelWidth возвращает визуальную ширину строки в условных единицах
func labelWidth(s string) float64 {
	total := 0.0
	for _, r := range s {
		if w, ok := charWidths[r]; ok {
			total += w
		} else {
			total += defaultCharWidth
		}
	}
	return total
}

// padLabel добивает подпись пробелами до заданной ширины.
// Подпись обрамляется символами нулевой ширины, чтобы платформа
// не обрезала ведущие/замыкающие пробелы.
func padLabel(s string, width float64) string {
	current := labelWidth(s)
	if current >= width {
		return "​" + s + "​"
	}

	var b strings.Builder
	remaining := width - current
	for _, p := range padRunes {
		if remaining < 0.5 {
			break
		}
		times := int(math.Floor(remaining / p.w))
		if times > 0 {
			b.WriteString(strings.Repeat(string(p.r), times))
			remaining -= p.w * float64(times)
		}
	}
	return "​" + s + b.String() + "​"
}

// PadOptionLabels выравнивает подписи вариантов ответа по ширине самой
// длинной, чтобы размер кнопки не подсказывал правильный вариант.
func PadOptionLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	maxWidth := 0.0
	for _, l := range labels {
		if w := labelWidth(l); w > maxWidth {
			maxWidth = w
		}
	}

	padded := make([]string, len(labels))
	for i, l := range labels {
		padded[i] = padLabel(l, maxWidth)
	}
	return padded
}
