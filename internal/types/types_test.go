package types

import (
	"strings"
	"testing"
	"time"
)

func TestCardValidate(t *testing.T) {
	tests := []struct {
		name    string
		card    Card
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid card",
			card: Card{Title: "Write docs", Priority: PriorityHigh},
		},
		{
			name:    "missing title",
			card:    Card{Title: ""},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "blank title",
			card:    Card{Title: "   "},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "title too long",
			card:    Card{Title: strings.Repeat("a", 501)},
			wantErr: true,
			errMsg:  "title must be 500 characters or less",
		},
		{
			name: "title at limit counts runes",
			card: Card{Title: strings.Repeat("é", 500)},
		},
		{
			name:    "priority out of range",
			card:    Card{Title: "x", Priority: Priority(7)},
			wantErr: true,
			errMsg:  "priority must be at most 3",
		},
		{
			name:    "negative position",
			card:    Card{Title: "x", Position: -1},
			wantErr: true,
			errMsg:  "position must be at least 0",
		},
		{
			name:    "empty dependency",
			card:    Card{Title: "x", Dependencies: []Dependency{{}}},
			wantErr: true,
			errMsg:  "dependency 0",
		},
		{
			name: "dependency by title",
			card: Card{Title: "x", Dependencies: []Dependency{{Title: "y"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestSubtaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		subtask Subtask
		wantErr bool
	}{
		{"valid", Subtask{Title: "a", EstimatedMinutes: 30, Tags: []string{"ops"}}, false},
		{"negative estimate", Subtask{Title: "a", EstimatedMinutes: -5}, true},
		{"negative actual", Subtask{Title: "a", ActualMinutes: -1}, true},
		{"blank tag", Subtask{Title: "a", Tags: []string{""}}, true},
		{"importance too high", Subtask{Title: "a", Importance: 11}, true},
		{"missing title", Subtask{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.subtask.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCardCloneIsDeep(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := &Card{Title: "a", DueDate: &due, Dependencies: []Dependency{{Title: "b"}}}
	cp := orig.Clone()
	cp.Dependencies[0].Title = "changed"
	*cp.DueDate = due.Add(time.Hour)

	if orig.Dependencies[0].Title != "b" {
		t.Errorf("clone shares dependency slice")
	}
	if !orig.DueDate.Equal(due) {
		t.Errorf("clone shares due date")
	}
}

func TestStripTempReferences(t *testing.T) {
	tmp := NewTempIDGenerator().Next()
	c := &Card{Title: "a", Dependencies: []Dependency{
		{TargetID: tmp, Title: "temp target"},
		{TargetID: RemoteID("9"), Title: "real target"},
	}}
	c.StripTempReferences()
	if !c.Dependencies[0].TargetID.IsZero() {
		t.Errorf("temp target kept: %v", c.Dependencies[0].TargetID)
	}
	if c.Dependencies[0].Title != "temp target" {
		t.Errorf("title lost")
	}
	if c.Dependencies[1].TargetID != RemoteID("9") {
		t.Errorf("remote target rewritten: %v", c.Dependencies[1].TargetID)
	}
}

func TestSubtaskSetCompleted(t *testing.T) {
	now := time.Now()
	s := &Subtask{Title: "a"}
	s.SetCompleted(true, now)
	if !s.Completed || s.CompletedAt == nil || !s.CompletedAt.Equal(now) {
		t.Fatalf("completion not stamped: %+v", s)
	}
	s.SetCompleted(false, now)
	if s.Completed || s.CompletedAt != nil {
		t.Fatalf("completion not cleared: %+v", s)
	}
}

func TestStatusRank(t *testing.T) {
	for i, s := range Statuses {
		if s.Rank() != i {
			t.Errorf("%s.Rank() = %d, want %d", s, s.Rank(), i)
		}
	}
	if Status("blocked").IsValid() {
		t.Errorf("unknown status reported valid")
	}
	if !StatusDone.AtLeast(StatusInReview) || StatusInProgress.AtLeast(StatusInReview) {
		t.Errorf("AtLeast ordering wrong")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		err  bool
	}{
		{"done", StatusDone, false},
		{"In Progress", StatusInProgress, false},
		{"in-review", StatusInReview, false},
		{" not_started ", StatusNotStarted, false},
		{"blocked", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseStatus(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
		err  bool
	}{
		{"high", PriorityHigh, false},
		{"Crítica", PriorityCritical, false},
		{"media", PriorityMedium, false},
		{"0", PriorityLow, false},
		{"", PriorityLow, false},
		{"4", PriorityLow, true},
		{"whenever", PriorityLow, true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParsePriority(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
