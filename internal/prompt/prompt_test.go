package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{name: "plain", input: "plain", want: ModePlain},
		{name: "structured", input: "structured", want: ModeStructured},
		{name: "guided", input: "guided", want: ModeGuided},
		{name: "case insensitive", input: "  Guided ", want: ModeGuided},
		{name: "unknown", input: "json", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "plain", ModePlain.String())
	assert.Equal(t, "structured", ModeStructured.String())
	assert.Equal(t, "guided", ModeGuided.String())
	assert.Equal(t, "Mode(99)", Mode(99).String())
}

func TestInstruction_DistinctPerMode(t *testing.T) {
	plain := Instruction(ModePlain, "")
	structured := Instruction(ModeStructured, "")
	guided := Instruction(ModeGuided, "")

	assert.NotEqual(t, plain, structured)
	assert.NotEqual(t, plain, guided)
	assert.NotEqual(t, structured, guided)

	assert.Contains(t, structured, "JSON")
	assert.Contains(t, guided, "recipe")
}

func TestInstruction_SummaryAppended(t *testing.T) {
	base := Instruction(ModePlain, "")
	withSummary := Instruction(ModePlain, "user likes pasta")

	assert.True(t, strings.HasPrefix(withSummary, base), "summary supplements, never replaces")
	assert.Contains(t, withSummary, "Previous conversation summary: user likes pasta")
}

func TestInstruction_GuidedNeverContainsMarker(t *testing.T) {
	// The guided instruction describes the final-answer header without
	// spelling the marker contiguously; otherwise every turn would look
	// complete if the instruction ever leaked into scanned text.
	assert.False(t, RecipeComplete(Instruction(ModeGuided, "")))
}

func TestRecipeComplete(t *testing.T) {
	assert.True(t, RecipeComplete("FINAL RECIPE: Borscht\n1. Chop beets"))
	assert.True(t, RecipeComplete("Here you go!\nFINAL RECIPE: Pancakes"))
	assert.False(t, RecipeComplete("What ingredients do you have?"))
	assert.False(t, RecipeComplete("final recipe: lowercase does not count"))
	assert.False(t, RecipeComplete(""))
}
