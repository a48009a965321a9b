package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_CorrectOption(t *testing.T) {
	// Arrange
	question := &Question{
		Text: "Столица Франции?",
		Options: OptionList{
			{Label: "Лион"},
			{Label: "Париж", IsCorrect: true},
			{Label: "Марсель"},
		},
	}

	// Act & Assert
	assert.Equal(t, 1, question.CorrectOption())
}

func TestQuestion_CorrectOption_NoneMarked(t *testing.T) {
	// Вопрос без правильного варианта не должен ломать игру:
	// возвращается -1, и никто не может ответить верно
	question := &Question{
		Options: OptionList{
			{Label: "A"},
			{Label: "B"},
		},
	}

	assert.Equal(t, -1, question.CorrectOption())
	assert.False(t, question.IsCorrect(0))
	assert.False(t, question.IsCorrect(1))
	assert.False(t, question.IsCorrect(-1))
}

func TestQuestion_IsCorrect(t *testing.T) {
	question := &Question{
		Options: OptionList{
			{Label: "Да", IsCorrect: true},
			{Label: "Нет"},
		},
	}

	assert.True(t, question.IsCorrect(0))
	assert.False(t, question.IsCorrect(1))
	assert.False(t, question.IsCorrect(5))
}

func TestQuestion_IsValidOption(t *testing.T) {
	question := &Question{
		Options: OptionList{{Label: "A"}, {Label: "B"}, {Label: "C"}},
	}

	assert.True(t, question.IsValidOption(0))
	assert.True(t, question.IsValidOption(2))
	assert.False(t, question.IsValidOption(-1), "отрицательный индекс должен быть невалидным")
	assert.False(t, question.IsValidOption(3), "индекс вне диапазона должен быть невалидным")
}

func TestQuestion_Clone_Independent(t *testing.T) {
	// Arrange
	original := &Question{
		Text:    "Вопрос",
		Options: OptionList{{Label: "A", IsCorrect: true}, {Label: "B"}},
	}

	// Act
	clone := original.Clone()
	clone.Options[0].Label = "Изменено"

	// Assert: изменение копии не затрагивает оригинал
	assert.Equal(t, "A", original.Options[0].Label)
}

func TestQuiz_Clone_DeepCopiesQuestions(t *testing.T) {
	// Arrange
	quiz := &Quiz{
		Title: "Викторина",
		Questions: []Question{
			{Text: "Вопрос 1", Options: OptionList{{Label: "A", IsCorrect: true}}},
		},
	}

	// Act
	clone := quiz.Clone()
	clone.Questions[0].Options[0].Label = "Изменено"
	clone.Questions[0].Text = "Другой текст"

	// Assert
	assert.Equal(t, "A", quiz.Questions[0].Options[0].Label)
	assert.Equal(t, "Вопрос 1", quiz.Questions[0].Text)
}

// Тесты для OptionList (JSONB сериализация)

func TestOptionList_Scan_ValidJSON(t *testing.T) {
	// Arrange
	jsonBytes := []byte(`[{"label":"Париж","is_correct":true},{"label":"Лион","is_correct":false}]`)
	var opts OptionList

	// Act
	err := opts.Scan(jsonBytes)

	// Assert
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "Париж", opts[0].Label)
	assert.True(t, opts[0].IsCorrect)
	assert.False(t, opts[1].IsCorrect)
}

func TestOptionList_Scan_Null(t *testing.T) {
	var opts OptionList
	require.NoError(t, opts.Scan(nil))
	assert.Empty(t, opts)
}

func TestOptionList_Scan_EmptyBytes(t *testing.T) {
	var opts OptionList
	require.NoError(t, opts.Scan([]byte{}))
	assert.Empty(t, opts)
}

func TestOptionList_Scan_WrongType(t *testing.T) {
	var opts OptionList
	assert.Error(t, opts.Scan("not bytes"))
}

func TestOptionList_Value_Empty(t *testing.T) {
	// Пустой список сериализуется в пустой JSON массив, а не в null
	val, err := OptionList{}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), val)
}

func TestOptionList_Value_RoundTrip(t *testing.T) {
	// Arrange
	original := OptionList{{Label: "Да", IsCorrect: true}, {Label: "Нет"}}

	// Act
	val, err := original.Value()
	require.NoError(t, err)

	var restored OptionList
	err = restored.Scan(val.([]byte))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}
