package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenvoice/turnengine/pkg/models"
)

func TestClassify_BypassForAssistantSpeakers(t *testing.T) {
	for _, speaker := range []models.Speaker{models.SpeakerLumen, models.SpeakerAI, models.SpeakerAssistant, "lumen", "AI"} {
		assert.Equal(t, PathBypass, Classify(speaker, "anything at all"), "speaker %s", speaker)
	}
}

func TestClassify_SkipForNoise(t *testing.T) {
	cases := []string{"", "   ", "[inaudible]", "???...", "#@"}
	for _, text := range cases {
		assert.Equal(t, PathSkip, Classify(models.SpeakerUser, text), "text %q", text)
	}
}

func TestClassify_FastCleanForAcknowledgement(t *testing.T) {
	cases := []string{"yes", "Okay", "sounds good", "that's correct", "no"}
	for _, text := range cases {
		assert.Equal(t, PathFastClean, Classify(models.SpeakerUser, text), "text %q", text)
	}
}

func TestClassify_FastCleanForShortCleanText(t *testing.T) {
	assert.Equal(t, PathFastClean, Classify(models.SpeakerUser, "all good"))
}

func TestClassify_ProcessForOrdinaryDeclarativeSentence(t *testing.T) {
	// A full sentence with no STT markers can still carry a genuine
	// transcription error (spec.md Scenario A: "vector of" for "Director
	// of"); it must still reach the cleaner LLM rather than fast-clean.
	assert.Equal(t, PathProcess, Classify(models.SpeakerUser, "I am the vector of Marketing"))
	assert.Equal(t, PathProcess, Classify(models.SpeakerUser, "we have about fifteen employees"))
}

func TestClassify_ProcessForSTTIndicators(t *testing.T) {
	assert.Equal(t, PathProcess, Classify(models.SpeakerUser, "we have about [inaudible] employees here <unclear>"))
}

func TestClassify_ProcessForForeignCharacters(t *testing.T) {
	assert.Equal(t, PathProcess, Classify(models.SpeakerUser, "tenemos quince empleados aquí en la compañía"))
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "we have fifteen employees", Normalize("  we   have\tfifteen\n employees  "))
}
