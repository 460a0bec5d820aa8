package meeting

// Overview is a meeting without its transcript body.
// Used by list operations to keep payloads small.
type Overview struct {
	ID                     string  `json:"id"`
	Title                  string  `json:"title"`
	Date                   string  `json:"date,omitempty"`
	DurationMinutes        float64 `json:"duration_minutes"`
	Status                 Status  `json:"status"`
	AudioURL               string  `json:"audio_url,omitempty"`
	Participants           int     `json:"participants"`
	SegmentCount           int     `json:"segment_count"`
	TranscriptionAvailable bool    `json:"transcription_available"`
	CreatedAt              int64   `json:"created_at"`
	UpdatedAt              int64   `json:"updated_at"`
}

// ToOverview strips the transcript from m.
func (m *Meeting) ToOverview() Overview {
	o := Overview{
		ID:                     m.ID,
		Title:                  m.Title,
		Date:                   m.Date,
		DurationMinutes:        m.DurationMinutes,
		Status:                 m.Status,
		AudioURL:               m.AudioURL,
		Participants:           m.Participants(),
		TranscriptionAvailable: m.TranscriptionAvailable(),
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
	if m.Transcript != nil {
		o.SegmentCount = len(m.Transcript.Segments)
	}
	return o
}
