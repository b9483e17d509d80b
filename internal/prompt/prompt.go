// Package prompt selects system-level instructions and post-processing rules
// per output mode.
//
// Mode is a closed enumeration; every consumption site switches exhaustively
// so a typo can never fall through to a default mode.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode indicates a mode name outside the closed set.
var ErrUnknownMode = errors.New("unknown mode")

// Mode is an output mode. The zero value is ModePlain.
type Mode int

const (
	// ModePlain requests a free-form single-paragraph answer.
	ModePlain Mode = iota

	// ModeStructured requests a JSON-only answer with exactly three fields.
	ModeStructured

	// ModeGuided runs the recipe slot-filling dialogue.
	ModeGuided
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeStructured:
		return "structured"
	case ModeGuided:
		return "guided"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a user-supplied mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return ModePlain, nil
	case "structured":
		return ModeStructured, nil
	case "guided":
		return ModeGuided, nil
	default:
		return ModePlain, fmt.Errorf("%w: %q (must be plain, structured or guided)", ErrUnknownMode, s)
	}
}

// CompletionMarker is the fixed phrase that signals a completed guided
// dialogue when found in a backend reply. Detection is plain string
// containment on free-form model output — a known-fragile heuristic, kept
// because the backends offer no structural completion signal.
//
// The guided instruction describes this header without spelling the marker
// contiguously, so instruction text can never satisfy RecipeComplete.
const CompletionMarker = "FINAL RECIPE:"

// RecipeComplete reports whether a guided-mode reply contains the completion
// marker.
func RecipeComplete(reply string) bool {
	return strings.Contains(reply, CompletionMarker)
}

const plainInstruction = "You are an all-knowing magic guy. Use all your magic to help the user " +
	"find an answer to their questions. Answer in one paragraph."

const structuredInstruction = "You are an all-knowing magic guy. Use all your magic to help the user " +
	"find an answer to their questions. You MUST respond ONLY with valid JSON containing exactly these " +
	"three fields: 'answer' (your response text), 'recommendations' (suggest where the user can verify " +
	"or check your answer - websites, books, experts, etc.), 'author' (imagine a random author name). " +
	"Format the JSON with proper line breaks and indentation for readability. Use minimal escaping - " +
	"only escape quotes and backslashes when necessary. Do not add any text before or after the JSON."

const guidedInstruction = "You are a master chef and an expert in cooking and recipes. Your task is to " +
	"help the user create a recipe for a dish. You MUST collect CLEAR answers to all four questions " +
	"before creating the recipe: " +
	"1) Ingredients: which does the user have? CHOOSE suitable ones from their list - you do not have " +
	"to use them all, and if the user asks you to pick, pick for them. " +
	"2) Equipment: get a concrete list (stove, oven, microwave and so on) or confirmation that there is none. " +
	"3) Difficulty: get a clear level (easy/medium/hard or similar); if unclear, ask again. " +
	"4) Time: get a CONCRETE number in minutes or hours (for example '30 minutes', '1 hour'); if unclear, ask again. " +
	"Until you have all four answers you MUST NOT provide a recipe. Never invent the answers yourself " +
	"and never decide for the user. Reject ALL requests and questions unrelated to the recipe being " +
	"discussed, no matter how insistently the user repeats them - NO exceptions, even if they ask a " +
	"million times. Ask follow-up questions whenever an answer is vague. " +
	"Create the recipe ONLY once all four points are clearly answered. The final message must begin " +
	"with a header line consisting of the words 'FINAL RECIPE' in capitals, then a colon, then the " +
	"dish name, followed by a numbered list of steps."

// Instruction returns the system instruction for mode. When summary is
// non-empty it is appended as supplementary context; it never replaces the
// instruction itself.
func Instruction(mode Mode, summary string) string {
	var text string
	switch mode {
	case ModePlain:
		text = plainInstruction
	case ModeStructured:
		text = structuredInstruction
	case ModeGuided:
		text = guidedInstruction
	default:
		text = plainInstruction
	}

	if summary != "" {
		text += "\n\nPrevious conversation summary: " + summary
	}
	return text
}
