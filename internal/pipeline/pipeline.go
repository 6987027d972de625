// Package pipeline chains speech transcription and SOAP summarization into
// a single audio-to-note operation.
package pipeline

import (
	"context"
	"strings"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/reasoning"
	"clinicassist-ai/internal/service"
	"clinicassist-ai/internal/stt"
)

// Summarizer produces a SOAP note from a transcript. *reasoning.Summarizer
// satisfies this.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, mood string, maxTokens int) (reasoning.SOAPNote, error)
}

// Result is the combined output of one pipeline run.
type Result struct {
	Transcript stt.Transcript    `json:"transcript"`
	Note       reasoning.SOAPNote `json:"soap_note"`
}

// Pipeline runs transcription followed by summarization. Each stage holds
// its model slot only for the duration of that stage, so the speech model
// is released before the generation model is requested.
type Pipeline struct {
	transcriber stt.Transcriber
	summarizer  Summarizer
}

func New(transcriber stt.Transcriber, summarizer Summarizer) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		summarizer:  summarizer,
	}
}

// noSpeechNotes is the fallback note body for clips that transcribe to
// silence.
const noSpeechNotes = "No speech detected in the audio."

// Run transcribes the clip and summarizes the transcript into a SOAP note.
// The first failing stage aborts the run; errors are tagged with the stage
// that produced them. A clip that transcribes to silence yields an empty
// transcript and a free-text fallback note rather than an error.
func (p *Pipeline) Run(ctx context.Context, clip stt.Clip, mood string) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	transcript, err := p.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return Result{}, service.AtStage("transcription", err)
	}

	if strings.TrimSpace(transcript.Text) == "" {
		logger.InfoContext(ctx, "clip transcribed to silence, skipping summarization",
			"duration_seconds", transcript.DurationSeconds)
		return Result{
			Transcript: transcript,
			Note:       reasoning.SOAPNote{Notes: noSpeechNotes},
		}, nil
	}

	note, err := p.summarizer.Summarize(ctx, transcript.Text, mood, 0)
	if err != nil {
		return Result{}, service.AtStage("summarization", err)
	}

	logger.InfoContext(ctx, "audio pipeline complete",
		"transcript_length", len(transcript.Text),
		"structured", note.Structured(),
	)
	return Result{Transcript: transcript, Note: note}, nil
}
