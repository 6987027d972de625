package stt

// Clip is one recorded audio payload submitted for transcription.
// Clips are ephemeral: created per request and discarded after use.
type Clip struct {
	// Data is the raw audio container bytes.
	Data []byte
	// Encoding is the declared container format ("wav", "mp3", "flac", "ogg").
	// If empty, the format is sniffed from the data.
	Encoding string
	// Language hints the spoken language (default "en").
	Language string
}

// Transcript is the immutable result of transcribing one clip.
type Transcript struct {
	// Text is the transcribed text. May be empty for silent audio.
	Text string `json:"text"`
	// Language is the language the engine detected or was told to use.
	Language string `json:"language"`
	// DurationSeconds is the audio duration reported by the engine.
	DurationSeconds float64 `json:"duration_seconds"`
	// Engine names the speech model that produced the transcript.
	Engine string `json:"engine"`
}
