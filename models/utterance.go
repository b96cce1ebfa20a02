package models

// Utterance is one diarized speech segment as returned by the transcription
// service. The speaker tag is a voice identity ("A", "B", ...), not a role;
// the reclassifier may rewrite it, everything else is immutable.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      int64   `json:"start"` // milliseconds
	End        int64   `json:"end"`   // milliseconds
	Confidence float64 `json:"confidence"`
}
