// Package classify decides, for each raw turn, whether it can skip the
// cleaner LLM entirely. Classification is a pure function of the turn's
// text and speaker: O(len(text)), no I/O.
package classify

import (
	"strings"
	"unicode"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// Path is the classifier's decision for one turn.
type Path string

const (
	// PathBypass is the assistant-speaker turn: recorded verbatim, no stages run.
	PathBypass Path = "bypass"
	// PathSkip is a turn flagged as STT noise: recorded as a passthrough, no stages run.
	PathSkip Path = "skip"
	// PathFastClean is clean-enough text handled without an LLM call.
	PathFastClean Path = "fast_clean"
	// PathProcess requires the full cleaner-LLM invocation.
	PathProcess Path = "process"
)

// minTranscriptLength below this, combined with noise indicators, marks a
// turn as STT garbage rather than a short genuine utterance.
const minTranscriptLength = 3

// acknowledgements is the closed set of simple affirmations that fast-clean
// without ever reaching the cleaner LLM.
var acknowledgements = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true,
	"no": true, "nope": true,
	"ok": true, "okay": true, "alright": true,
	"sure": true, "sounds good": true, "that's correct": true,
	"that is correct": true, "correct": true, "right": true,
	"got it": true, "understood": true, "thanks": true, "thank you": true,
}

// noisePatterns are substrings strongly associated with garbled STT output
// rather than genuine speech.
var noisePatterns = []string{"[inaudible]", "[noise]", "[silence]", "<unk>", "???"}

// Classify decides the processing path for one raw turn.
func Classify(speaker models.Speaker, rawText string) Path {
	if speaker.IsAssistantSide() {
		return PathBypass
	}
	if isSTTNoise(rawText) {
		return PathSkip
	}
	if isFastClean(rawText) {
		return PathFastClean
	}
	return PathProcess
}

// Normalize produces the fast-clean path's cleaned_text: trimmed whitespace
// collapsed to single spaces. No correction or rewriting happens here.
func Normalize(rawText string) string {
	fields := strings.Fields(rawText)
	return strings.Join(fields, " ")
}

// isSTTNoise reports whether a turn is noise end to end, as opposed to
// genuine speech that merely contains a noise marker alongside real words
// (that case goes to the full cleaner instead, see Classify).
func isSTTNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	stripped := strings.ToLower(trimmed)
	for _, pattern := range noisePatterns {
		stripped = strings.ReplaceAll(stripped, pattern, "")
	}
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return true
	}

	if len([]rune(trimmed)) < minTranscriptLength && !isAcknowledgement(trimmed) {
		return true
	}
	if isPunctuationHeavy(trimmed) {
		return true
	}
	return false
}

// fastCleanMaxWords bounds the "no markers" branch of isFastClean to short
// confirmation-shaped utterances. A full declarative sentence can still be
// free of STT markers and balanced punctuation yet carry a genuine
// transcription error (e.g. "I am the vector of Marketing") that only the
// cleaner LLM's conversation-history context can catch; gating on length
// keeps those sentences on the process path instead of short-circuiting
// them to a no-op clean.
const fastCleanMaxWords = 4

func isFastClean(text string) bool {
	trimmed := strings.TrimSpace(text)
	if isAcknowledgement(trimmed) {
		return true
	}
	if len(strings.Fields(trimmed)) > fastCleanMaxWords {
		return false
	}
	return !hasSTTIndicators(trimmed) && !hasForeignCharacters(trimmed) && isPunctuationBalanced(trimmed)
}

func isAcknowledgement(text string) bool {
	return acknowledgements[strings.ToLower(strings.Trim(text, ".!? "))]
}

// isPunctuationHeavy flags text where punctuation outnumbers letters, a
// strong signal of garbled transcription rather than speech.
func isPunctuationHeavy(text string) bool {
	var punctCount, letterCount int
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letterCount++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punctCount++
		}
	}
	return letterCount == 0 || punctCount > letterCount
}

// sttIndicators are bracketed or caret-style markers upstream STT engines
// emit for low-confidence spans.
var sttIndicators = []string{"[", "]", "<", ">", "***", "##"}

func hasSTTIndicators(text string) bool {
	for _, indicator := range sttIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

func hasForeignCharacters(text string) bool {
	for _, r := range text {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

func isPunctuationBalanced(text string) bool {
	var parens, brackets, quotes int
	for _, r := range text {
		switch r {
		case '(':
			parens++
		case ')':
			parens--
		case '[':
			brackets++
		case ']':
			brackets--
		case '"':
			quotes++
		}
	}
	if quotes%2 != 0 {
		return false
	}
	return parens == 0 && brackets == 0
}
