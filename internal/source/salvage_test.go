package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain_object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "json_fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare_fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "surrounding_prose",
			input: "Here is the data you asked for:\n{\"a\": 1}\nLet me know if you need more.",
			want:  `{"a": 1}`,
		},
		{
			name:  "no_object",
			input: "I could not find any data.",
			want:  "I could not find any data.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.input))
		})
	}
}

func TestSalvageJSON(t *testing.T) {
	type answer struct {
		Score flexFloat `json:"score"`
	}

	t.Run("last_block_wins", func(t *testing.T) {
		var a answer
		ok := salvageJSON([]string{`{"score": 90}`, `{"score": 95}`}, &a)
		require.True(t, ok)
		require.NotNil(t, a.Score.Float())
		assert.Equal(t, 95.0, *a.Score.Float())
	})

	t.Run("falls_back_to_earlier_block", func(t *testing.T) {
		var a answer
		ok := salvageJSON([]string{`{"score": 90}`, "Searching for more results..."}, &a)
		require.True(t, ok)
		require.NotNil(t, a.Score.Float())
		assert.Equal(t, 90.0, *a.Score.Float())
	})

	t.Run("fenced_block", func(t *testing.T) {
		var a answer
		ok := salvageJSON([]string{"```json\n{\"score\": 88}\n```"}, &a)
		require.True(t, ok)
		require.NotNil(t, a.Score.Float())
	})

	t.Run("nothing_parseable", func(t *testing.T) {
		var a answer
		assert.False(t, salvageJSON([]string{"no data", "still nothing"}, &a))
	})

	t.Run("empty_blocks", func(t *testing.T) {
		var a answer
		assert.False(t, salvageJSON(nil, &a))
	})
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
	}{
		{"number", `92`, ptr(92.0)},
		{"decimal", `24.5`, ptr(24.5)},
		{"quoted_number", `"92"`, ptr(92.0)},
		{"trailing_units", `"95 pts"`, ptr(95.0)},
		{"currency_symbol", `"€120.50"`, ptr(120.5)},
		{"thousands_separator", `"1,250"`, ptr(1250.0)},
		{"null", `null`, nil},
		{"empty_string", `""`, nil},
		{"garbage", `"n/a"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexFloat
			require.NoError(t, json.Unmarshal([]byte(tt.input), &f))
			if tt.want == nil {
				assert.Nil(t, f.Float())
				return
			}
			require.NotNil(t, f.Float())
			assert.Equal(t, *tt.want, *f.Float())
		})
	}
}

func TestFlexFloatInt(t *testing.T) {
	var f flexFloat
	require.NoError(t, json.Unmarshal([]byte(`"1840 ratings"`), &f))
	require.NotNil(t, f.Int())
	assert.Equal(t, 1840, *f.Int())

	var empty flexFloat
	assert.Nil(t, empty.Int())
}

func ptr[T any](v T) *T { return &v }
