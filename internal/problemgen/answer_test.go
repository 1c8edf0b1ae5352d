package problemgen

import "testing"

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1/2", "1/2", true},
		{"2/4", "1/2", true},
		{"0.5", "1/2", true},
		{".5", "1/2", true},
		{"1.5", "3/2", true},
		{"1 1/2", "3/2", true},
		{"2 3/4", "11/4", true},
		{"-1/2", "-1/2", true},
		{"-.5", "-1/2", true},
		{"-1 1/2", "-3/2", true},
		{"007", "7", true},
		{"  .25  ", "1/4", true},
		{"", "", false},
		{"abc", "", false},
		{"1/0", "", false},
		{"1 1/0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, ok := ParseAnswer(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseAnswer(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && r.RatString() != tt.want {
				t.Errorf("ParseAnswer(%q) = %q, want %q", tt.input, r.RatString(), tt.want)
			}
		})
	}
}

func TestAnswersEquivalent(t *testing.T) {
	groups := [][]string{
		{"1/2", "2/4", "0.5", ".5"},
		{"1.5", "1 1/2", "3/2", "6/4"},
		{"0", "0.0", "0/1"},
		{"-1.5", "-1 1/2", "-3/2"},
		{"42", " 42 ", "042"},
	}
	for _, g := range groups {
		for _, a := range g {
			for _, b := range g {
				if !AnswersEquivalent(a, b) {
					t.Errorf("AnswersEquivalent(%q, %q) = false, want true", a, b)
				}
			}
		}
	}

	tests := []struct {
		learner, correct string
		want             bool
	}{
		{"43", "42", false},
		{"", "0", false},
		{"", "", false},
		{"seven", "seven", true},
		{"seven", "7", false},
		{"1/3", "0.33", false},
	}
	for _, tt := range tests {
		if got := AnswersEquivalent(tt.learner, tt.correct); got != tt.want {
			t.Errorf("AnswersEquivalent(%q, %q) = %v, want %v", tt.learner, tt.correct, got, tt.want)
		}
	}
}
