package session

import "testing"

func TestDetectQuizRequirement(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"quiz and answer headings", "# Quiz\nWhat is 2+2?\n# Answer\n4", true},
		{"deep headings", "### quiz\nsomething\n###### ANSWER\nelse", true},
		{"labels", "Quiz: what does defer do?\nAnswer: it delays the call", true},
		{"indented labels", "  quiz : name the keyword\n  answer : go", true},
		{"heading quiz with label answer", "## Quiz\npick one\nanswer: channels", true},
		{"quiz heading only", "# Quiz\nWhat is 2+2?", false},
		{"answer heading only", "## Answer\n42", false},
		{"quiz label only", "Quiz: what does defer do?", false},
		{"plain prose", "This step explains interfaces in depth.", false},
		{"quiz mid-sentence", "Take the quiz later; the answer is in chapter 2.", false},
		{"quizzical word", "A quizzical look crossed her face: odd.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectQuizRequirement(tt.content); got != tt.want {
				t.Errorf("DetectQuizRequirement(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}
