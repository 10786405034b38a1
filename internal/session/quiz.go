package session

import "regexp"

// Quiz markers are detected from served step content. A step gates
// advancement only when its markdown contains BOTH a quiz marker and an
// answer marker, each as a heading ("## Quiz") or a line-leading label
// ("Quiz:"). One marker alone does not gate; a quiz without a graded
// answer cannot be evaluated. Matching is line-anchored and
// case-insensitive.
var (
	quizHeadingRE   = regexp.MustCompile(`(?im)^\s{0,3}#{1,6}\s*quiz\b`)
	quizLabelRE     = regexp.MustCompile(`(?im)^\s*quiz\s*:`)
	answerHeadingRE = regexp.MustCompile(`(?im)^\s{0,3}#{1,6}\s*answer\b`)
	answerLabelRE   = regexp.MustCompile(`(?im)^\s*answer\s*:`)
)

// DetectQuizRequirement reports whether step content contains a
// quiz/answer marker pair, which makes the step block advancement until
// a correct result is recorded.
func DetectQuizRequirement(content string) bool {
	hasQuiz := quizHeadingRE.MatchString(content) || quizLabelRE.MatchString(content)
	hasAnswer := answerHeadingRE.MatchString(content) || answerLabelRE.MatchString(content)
	return hasQuiz && hasAnswer
}
