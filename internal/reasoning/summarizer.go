package reasoning

import (
	"context"
	"fmt"
	"strings"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/llm"
	"clinicassist-ai/internal/resource"
	"clinicassist-ai/internal/service"
)

const (
	// defaultMaxTokens bounds generation length when the caller passes 0.
	defaultMaxTokens = 400
	// maxMaxTokens rejects absurdly large requests that would pin the
	// generation model for too long.
	maxMaxTokens = 2048
)

const systemPrompt = "You are a medical assistant that converts patient transcriptions into concise SOAP " +
	"(Subjective, Objective, Assessment, Plan) format notes. Be precise, professional, and focus on key " +
	"medical information."

// Generator produces text from a chat prompt. *llm.Client satisfies this.
type Generator interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Summarizer turns a transcript (plus an optional mood hint) into a SOAP
// note using the generation model.
type Summarizer struct {
	generator Generator
	resources *resource.Manager
}

// NewSummarizer creates a new clinical summarizer.
func NewSummarizer(generator Generator, resources *resource.Manager) *Summarizer {
	return &Summarizer{
		generator: generator,
		resources: resources,
	}
}

// Summarize generates a SOAP note from the transcript. mood may be empty.
// maxTokens of 0 selects the default; values above the upper bound are
// rejected. Unparseable generation output degrades to a single-section note
// rather than an error.
func (s *Summarizer) Summarize(ctx context.Context, transcript, mood string, maxTokens int) (SOAPNote, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(transcript) == "" {
		return SOAPNote{}, fmt.Errorf("%w: empty transcript", service.ErrInvalidInput)
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	if maxTokens < 0 || maxTokens > maxMaxTokens {
		return SOAPNote{}, fmt.Errorf("%w: max_tokens must be between 1 and %d", service.ErrInvalidInput, maxMaxTokens)
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(transcript, mood)},
	}

	handle, err := s.resources.Acquire(ctx, resource.ModelGeneration)
	if err != nil {
		return SOAPNote{}, err
	}
	defer s.resources.Release(handle)

	raw, err := s.generator.Complete(ctx, messages, llm.ChatParams{
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		logger.ErrorContext(ctx, "SOAP generation failed", "error", err)
		return SOAPNote{}, err
	}

	note := parseSOAP(raw)
	if !note.Structured() {
		logger.WarnContext(ctx, "generation output missing SOAP sections, using free-text fallback",
			"output_length", len(raw))
	}

	logger.InfoContext(ctx, "SOAP note generated",
		"transcript_length", len(transcript),
		"structured", note.Structured(),
		"mood", mood,
	)
	return note, nil
}

// buildUserPrompt embeds the transcript and mood hint into the SOAP
// generation instruction.
func buildUserPrompt(transcript, mood string) string {
	moodText := "No emotion detected"
	if mood != "" {
		moodText = "Detected emotion: " + mood
	}

	return fmt.Sprintf(`Patient transcription: %q

%s

Generate a concise medical SOAP note summary with the following sections:
- Subjective: Patient's reported symptoms, concerns, and history
- Objective: Observable findings, vital signs, or clinical observations (if any mentioned)
- Assessment: Clinical impression, diagnosis, or differential diagnosis
- Plan: Recommended next steps, treatment plan, or follow-up actions

Format the response clearly with section headers. Keep it concise and clinically relevant.`,
		strings.TrimSpace(transcript), moodText)
}
