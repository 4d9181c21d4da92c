package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Counts is an authoritative snapshot of the rep counters. Each snapshot
// replaces the previous one; it is never applied as a delta.
type Counts struct {
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Total     int     `json:"total"`
	Accuracy  float64 `json:"accuracy"`
}

// NewCounts builds a snapshot from the correct/incorrect split
func NewCounts(correct, incorrect int) Counts {
	c := Counts{Correct: correct, Incorrect: incorrect, Total: correct + incorrect}
	c.Accuracy = accuracyOf(c.Correct, c.Total)
	return c
}

func accuracyOf(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// UnmarshalJSON implements json.Unmarshaler. Total and accuracy are
// derived only when the server left them out; values it sent, zero
// included, are kept.
func (c *Counts) UnmarshalJSON(data []byte) error {
	var raw struct {
		Correct   int      `json:"correct"`
		Incorrect int      `json:"incorrect"`
		Total     *int     `json:"total"`
		Accuracy  *float64 `json:"accuracy"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Counts{Correct: raw.Correct, Incorrect: raw.Incorrect}
	if raw.Total != nil {
		c.Total = *raw.Total
	} else {
		c.Total = c.Correct + c.Incorrect
	}
	if raw.Accuracy != nil {
		c.Accuracy = *raw.Accuracy
	} else {
		c.Accuracy = accuracyOf(c.Correct, c.Total)
	}
	return nil
}

// Labels is a list of keypoint labels. The server may send landmark
// indices as numbers, so any JSON scalar is accepted and kept as text.
type Labels []string

// UnmarshalJSON implements json.Unmarshaler
func (l *Labels) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("keypoint labels: %w", err)
	}
	if raw == nil {
		*l = nil
		return nil
	}

	out := make(Labels, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n.String())
			continue
		}
		var b bool
		if err := json.Unmarshal(item, &b); err == nil {
			out = append(out, strconv.FormatBool(b))
			continue
		}
		return fmt.Errorf("keypoint label %s: unsupported value", string(item))
	}
	*l = out
	return nil
}

// DebugData is the analyzer's internal state as reported by the server
type DebugData struct {
	State            string `json:"state"`
	MissingKeypoints Labels `json:"missing_keypoints"`
	RepInProgress    *bool  `json:"rep_in_progress,omitempty"`
	LastFeedback     string `json:"last_feedback,omitempty"`
}

// PushMessage is one payload of the /process event stream. Every field is
// optional and several may be present at once; a nil pointer means the
// field was absent (or null) and its UI region stays unchanged.
type PushMessage struct {
	Error        *string    `json:"error,omitempty"`
	Completed    bool       `json:"completed,omitempty"`
	FinalResults *Counts    `json:"final_results,omitempty"`
	Frame        *string    `json:"frame,omitempty"`
	Counts       *Counts    `json:"counts,omitempty"`
	Angle        *float64   `json:"angle,omitempty"`
	Feedback     *string    `json:"feedback,omitempty"`
	Debug        *string    `json:"debug,omitempty"`
	DebugData    *DebugData `json:"debug_data,omitempty"`
	Progress     *float64   `json:"progress,omitempty"`
}

// ErrorText returns the server error, or "" when the message carries none
func (m *PushMessage) ErrorText() string {
	if m.Error == nil {
		return ""
	}
	return *m.Error
}

// IsTerminal reports whether the message ends the session with final results
func (m *PushMessage) IsTerminal() bool {
	return m.Completed && m.FinalResults != nil
}

// UploadResponse is the JSON body returned by POST /upload
type UploadResponse struct {
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// MessageResponse is the generic {message} or {error} reply of the
// auxiliary endpoints
type MessageResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExportedResults is the payload written by the server on export
type ExportedResults struct {
	Timestamp       string          `json:"timestamp"`
	Counts          Counts          `json:"counts"`
	DetailedResults json.RawMessage `json:"detailed_results,omitempty"`
}

// ExportResponse is the JSON body returned by GET /export_results
type ExportResponse struct {
	Error    string          `json:"error,omitempty"`
	Message  string          `json:"message,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Results  ExportedResults `json:"results"`
}
