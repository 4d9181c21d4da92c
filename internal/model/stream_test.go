package model

import (
	"encoding/json"
	"testing"
)

func TestPushMessage_FieldPresence(t *testing.T) {
	var msg PushMessage
	payload := `{"counts": {"correct": 3, "incorrect": 1, "total": 4, "accuracy": 75}, "angle": null}`
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if msg.Counts == nil {
		t.Fatal("Expected counts to be present")
	}
	if *msg.Counts != (Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}) {
		t.Errorf("Unexpected counts: %+v", *msg.Counts)
	}
	if msg.Angle != nil {
		t.Errorf("Expected null angle to be treated as absent, got %v", *msg.Angle)
	}
	if msg.Frame != nil || msg.Feedback != nil || msg.Progress != nil || msg.DebugData != nil {
		t.Error("Expected absent fields to stay nil")
	}
	if msg.IsTerminal() {
		t.Error("Counts-only message must not be terminal")
	}
	if msg.ErrorText() != "" {
		t.Errorf("Expected no error text, got %q", msg.ErrorText())
	}
}

func TestPushMessage_IsTerminal(t *testing.T) {
	tests := []struct {
		payload  string
		expected bool
	}{
		{`{"completed": true, "final_results": {"correct": 8, "incorrect": 2, "total": 10, "accuracy": 80}}`, true},
		{`{"completed": true}`, false},
		{`{"final_results": {"correct": 1}}`, false},
		{`{"completed": false, "final_results": {"correct": 1}}`, false},
	}

	for _, test := range tests {
		var msg PushMessage
		if err := json.Unmarshal([]byte(test.payload), &msg); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", test.payload, err)
		}
		if got := msg.IsTerminal(); got != test.expected {
			t.Errorf("IsTerminal() for %s = %v, expected %v", test.payload, got, test.expected)
		}
	}
}

func TestLabels_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		payload  string
		expected []string
	}{
		{`{"state": "UP", "missing_keypoints": ["left_hip", "left_knee"]}`, []string{"left_hip", "left_knee"}},
		{`{"state": "DOWN", "missing_keypoints": [11, 23, 25]}`, []string{"11", "23", "25"}},
		{`{"state": "DOWN", "missing_keypoints": []}`, []string{}},
		{`{"state": "DOWN", "missing_keypoints": null}`, nil},
	}

	for _, test := range tests {
		var data DebugData
		if err := json.Unmarshal([]byte(test.payload), &data); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", test.payload, err)
		}
		if len(data.MissingKeypoints) != len(test.expected) {
			t.Fatalf("Expected %d labels, got %d (%v)", len(test.expected), len(data.MissingKeypoints), data.MissingKeypoints)
		}
		for i := range test.expected {
			if data.MissingKeypoints[i] != test.expected[i] {
				t.Errorf("Label %d: expected %s, got %s", i, test.expected[i], data.MissingKeypoints[i])
			}
		}
	}

	var data DebugData
	if err := json.Unmarshal([]byte(`{"missing_keypoints": [{"x": 1}]}`), &data); err == nil {
		t.Error("Expected error for object label")
	}
}

func TestCounts_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in       string
		expected Counts
	}{
		{`{"correct":3,"incorrect":1}`, Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}},
		{`{"correct":3,"incorrect":1,"total":4,"accuracy":75}`, Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}},
		{`{"incorrect":2}`, Counts{Incorrect: 2, Total: 2}},
		{`{"correct":3,"incorrect":1,"accuracy":0}`, Counts{Correct: 3, Incorrect: 1, Total: 4}},
		{`{"correct":3,"incorrect":1,"total":0}`, Counts{Correct: 3, Incorrect: 1}},
		{`{"correct":1,"incorrect":0,"total":4}`, Counts{Correct: 1, Total: 4, Accuracy: 25}},
		{`{}`, Counts{}},
	}

	for _, test := range tests {
		var got Counts
		if err := json.Unmarshal([]byte(test.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", test.in, err)
		}
		if got != test.expected {
			t.Errorf("Unmarshal(%s) = %+v, expected %+v", test.in, got, test.expected)
		}
	}
}

func TestNewCounts(t *testing.T) {
	if got := NewCounts(3, 1); got != (Counts{Correct: 3, Incorrect: 1, Total: 4, Accuracy: 75}) {
		t.Errorf("Unexpected counts %+v", got)
	}
	if got := NewCounts(0, 0); got != (Counts{}) {
		t.Errorf("Expected zero counts, got %+v", got)
	}
}
