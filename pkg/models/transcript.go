package models

// Metadata field names recognized in transcript headers.
const (
	MetaInterviewee = "interviewee"
	MetaRole        = "role"
	MetaCompany     = "company"
	MetaDate        = "date"
	MetaUserType    = "user_type"
)

// TranscriptRecord is one interview loaded from the transcript source.
// Records are created once at load time and shared read-only by every stage.
type TranscriptRecord struct {
	// Filename is the source file name, unique within a run.
	Filename string `json:"filename"`
	// Content is the raw transcript text.
	Content string `json:"content"`
	// Metadata maps recognized field names to extracted values.
	// Absent fields are missing keys, never empty placeholders.
	Metadata map[string]string `json:"metadata"`
}

// Meta returns the metadata value for key, or def when the key is absent.
func (t TranscriptRecord) Meta(key, def string) string {
	if v, ok := t.Metadata[key]; ok && v != "" {
		return v
	}
	return def
}
