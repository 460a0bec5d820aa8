package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a meeting transcript as exported by a transcription service or written by hand.
type File struct {
	Title    string  `json:"title" yaml:"title"`
	Date     string  `json:"date,omitempty" yaml:"date,omitempty"`
	Duration float64 `json:"duration,omitempty" yaml:"duration,omitempty"` // minutes
	AudioURL string  `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`

	Transcript `yaml:",inline"`
}

// Load reads a transcript file. The format follows the extension:
// .yaml/.yml through yaml.v3, everything else as JSON.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format implied by ext.
func Parse(data []byte, ext string) (*File, error) {
	f := &File{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parse yaml transcript: %w", err)
		}
	default:
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parse json transcript: %w", err)
		}
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("transcript title is required")
	}
	seen := make(map[string]bool, len(f.Speakers))
	for i, sp := range f.Speakers {
		if sp.ID == "" {
			return fmt.Errorf("speakers[%d]: id is required", i)
		}
		if seen[sp.ID] {
			return fmt.Errorf("speakers[%d]: duplicate id %q", i, sp.ID)
		}
		seen[sp.ID] = true
	}
	for i, seg := range f.Segments {
		if seg.EndTime < seg.StartTime {
			return fmt.Errorf("segments[%d]: end_time %.2f before start_time %.2f", i, seg.EndTime, seg.StartTime)
		}
	}
	return nil
}
