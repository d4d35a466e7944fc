// Package ingest loads interview transcripts from a directory.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/c4pm/pkg/models"
)

// ErrMissingDir is returned when the transcript directory does not exist.
var ErrMissingDir = errors.New("transcript directory does not exist")

// Extensions are the recognized transcript file patterns, in load order.
var Extensions = []string{"*.txt", "*.md"}

// headerLines is how many leading lines are scanned for metadata labels.
const headerLines = 20

// metadataLabels maps each metadata field to the line prefixes that set it.
var metadataLabels = []struct {
	field    string
	prefixes []string
}{
	{models.MetaInterviewee, []string{"interviewee:", "name:", "participant:"}},
	{models.MetaRole, []string{"role:", "title:", "position:"}},
	{models.MetaCompany, []string{"company:", "organization:", "org:"}},
	{models.MetaDate, []string{"date:", "interview date:"}},
	{models.MetaUserType, []string{"user type:", "segment:", "type:"}},
}

// Load reads every transcript in dir. Files are not searched recursively.
// All *.txt files come first, then *.md, each group sorted by name.
func Load(dir string) ([]models.TranscriptRecord, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrMissingDir)
		}
		return nil, fmt.Errorf("stat transcript directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, ErrMissingDir)
	}

	var transcripts []models.TranscriptRecord
	for _, pattern := range Extensions {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, path := range matches {
			fi, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", path, err)
			}
			if fi.IsDir() {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read transcript: %w", err)
			}
			content := string(data)
			transcripts = append(transcripts, models.TranscriptRecord{
				Filename: filepath.Base(path),
				Content:  content,
				Metadata: ExtractMetadata(content),
			})
		}
	}
	return transcripts, nil
}

// ExtractMetadata scans the first lines of content for "label: value"
// headers. Labels are matched case-insensitively; a later line overrides an
// earlier one for the same field. Fields without a header are absent.
func ExtractMetadata(content string) map[string]string {
	metadata := make(map[string]string)

	lines := strings.SplitN(content, "\n", headerLines+1)
	if len(lines) > headerLines {
		lines = lines[:headerLines]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, label := range metadataLabels {
			for _, prefix := range label.prefixes {
				if !strings.HasPrefix(lower, prefix) {
					continue
				}
				value := strings.TrimSpace(trimmed[len(prefix):])
				value = strings.TrimSpace(strings.Trim(value, ":"))
				metadata[label.field] = value
				break
			}
		}
	}
	return metadata
}
