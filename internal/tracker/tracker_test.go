package tracker

import (
	"testing"

	"github.com/mikeymath/mathgame/internal/api"
)

type fakeSilencer struct {
	unregistered []string
}

func (f *fakeSilencer) Unregister(eventType string) {
	f.unregistered = append(f.unregistered, eventType)
}

func TestReportAnswer(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []bool
	}{
		{"empty is ignored", []string{""}, []bool{false}},
		{"first value submits", []string{"4"}, []bool{true}},
		{"identical twice submits once", []string{"4", "4"}, []bool{true, false}},
		{"different values both submit", []string{"4", "5"}, []bool{true, true}},
		{"returning to an older value submits", []string{"4", "5", "4"}, []bool{true, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(nil)
			tr.ProblemDisplayed("1")
			for i, v := range tt.values {
				if got := tr.ReportAnswer(v, "1"); got != tt.want[i] {
					t.Errorf("ReportAnswer(%q) #%d = %v, want %v", v, i, got, tt.want[i])
				}
			}
		})
	}
}

func TestReportAnswer_SilencesWorkingTelemetry(t *testing.T) {
	s := &fakeSilencer{}
	tr := New(s)
	tr.ProblemDisplayed("1")

	tr.ReportAnswer("4", "1")
	tr.ReportAnswer("4", "1")

	if len(s.unregistered) != 1 || s.unregistered[0] != api.EventWorkingOnProblem {
		t.Errorf("unregistered = %v, want [%s]", s.unregistered, api.EventWorkingOnProblem)
	}
}

func TestWasIncorrectAnswer(t *testing.T) {
	tr := New(nil)
	tr.ProblemDisplayed("1")

	if tr.WasIncorrectAnswer("1") {
		t.Error("no submission yet: expected false")
	}

	tr.ReportAnswer("4", "1")
	if !tr.WasIncorrectAnswer("1") {
		t.Error("after submission on same problem: expected true")
	}
	if tr.WasIncorrectAnswer("2") {
		t.Error("other problem: expected false")
	}

	tr.AnswerChanged()
	if tr.WasIncorrectAnswer("1") {
		t.Error("after edit: expected false")
	}

	tr.ReportAnswer("5", "1")
	if !tr.WasIncorrectAnswer("1") {
		t.Error("after resubmission: expected true")
	}
}

func TestWasIncorrectAnswer_FalseAfterDifferentProblemDisplayed(t *testing.T) {
	tr := New(nil)
	tr.ProblemDisplayed("1")
	tr.ReportAnswer("4", "1")

	tr.ProblemDisplayed("2")
	if tr.WasIncorrectAnswer("1") {
		t.Error("old problem: expected false")
	}
	if tr.WasIncorrectAnswer("2") {
		t.Error("new problem: expected false")
	}

	// The new problem starts a fresh scope, so the same value may be sent again.
	if !tr.ReportAnswer("4", "2") {
		t.Error("expected submission on new problem")
	}
}

func TestProblemDisplayed_SameProblemKeepsState(t *testing.T) {
	tr := New(nil)
	tr.ProblemDisplayed("1")
	tr.ReportAnswer("4", "1")

	tr.ProblemDisplayed("1")
	if !tr.WasIncorrectAnswer("1") {
		t.Error("redisplay of the same problem must keep the try-again signal")
	}
	if tr.ReportAnswer("4", "1") {
		t.Error("duplicate must stay suppressed on redisplay")
	}
}

func TestSubmissionFailed(t *testing.T) {
	tests := []struct {
		name      string
		failed    string
		problemID string
		resubmit  bool
	}{
		{"same value can be sent again", "4", "1", true},
		{"other value leaves the record", "5", "1", false},
		{"other problem leaves the record", "4", "2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(nil)
			tr.ProblemDisplayed("1")
			if !tr.ReportAnswer("4", "1") {
				t.Fatal("first submission was suppressed")
			}
			tr.SubmissionFailed(tt.failed, tt.problemID)
			if got := tr.ReportAnswer("4", "1"); got != tt.resubmit {
				t.Errorf("ReportAnswer after failure = %v, want %v", got, tt.resubmit)
			}
		})
	}
}

func TestSubmissionFailed_NoTryAgain(t *testing.T) {
	tr := New(nil)
	tr.ProblemDisplayed("1")
	tr.ReportAnswer("4", "1")
	tr.SubmissionFailed("4", "1")
	if tr.WasIncorrectAnswer("1") {
		t.Error("an unsent answer is not a wrong answer")
	}
}
