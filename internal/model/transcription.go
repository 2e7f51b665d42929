package model

// Word is a single timed token from the transcription result
type Word struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"` // start time in seconds
	End     float64 `json:"end"`   // end time in seconds
	Type    string  `json:"type"`  // "word", "spacing" or "audio_event"
	Speaker string  `json:"speaker_id,omitempty"`
	LogProb float64 `json:"logprob,omitempty"`
}

// AdditionalFormat is an alternate rendition of the transcription,
// returned alongside the main result when requested
type AdditionalFormat struct {
	RequestedFormat string `json:"requested_format"`
	FileExtension   string `json:"file_extension,omitempty"`
	ContentType     string `json:"content_type,omitempty"`
	IsBase64Encoded bool   `json:"is_base64_encoded"`
	Content         string `json:"content"`
}

// TranscriptionResult is the structured response of the speech-to-text
// service. It is transient: only its derived artifacts are persisted.
type TranscriptionResult struct {
	LanguageCode        string             `json:"language_code"`
	LanguageProbability float64            `json:"language_probability"`
	Text                string             `json:"text"`
	Words               []Word             `json:"words"`
	AdditionalFormats   []AdditionalFormat `json:"additional_formats,omitempty"`
}

// AdditionalFormat returns the rendition whose requested format matches
// format, or nil when the service did not return one
func (r *TranscriptionResult) AdditionalFormat(format string) *AdditionalFormat {
	for i := range r.AdditionalFormats {
		if r.AdditionalFormats[i].RequestedFormat == format {
			return &r.AdditionalFormats[i]
		}
	}
	return nil
}
