package server

import (
	"fmt"
	"strings"
)

// The prompt blocks below steer the client model through a course.
// They are sent around step content on every start/advance response.

const lessonPrompt = `
This is a course to help a new user learn the topic at hand.
Please help the user through the steps of the course by walking them through the content and following the course
to write the initial version of the code for them. The goal is to show them how the code works and explain it as they go
as the course goes on. Each lesson is broken up into steps. You should return the content of the step and ask the user
to move to the next step when they are ready. If the step contains instructions to write code, you should write the code
for the user when possible. You should always briefly explain the step before writing the code. Please ensure to
return any text in markdown blockquotes exactly as written in your response. When the user ask about their course progress or course status,
use the ` + "`getCourseStatus`" + ` tool to retrieve it.
`

const courseSearchPrompt = `
If the user asks what courses are available, call the ` + "`searchCourses`" + ` tool with an empty query to return the full list.
Use the ` + "`searchCourses`" + ` tool to search courses by query. Passing an empty or whitespace query returns the full list.
`

const courseRestrictionPrompt = `
This MCP server is locked to a single course. Do not search for or switch to other courses.
`

const quizPrompt = `
If the step content includes a quiz and an answer, you must present the quiz content to the user. Do not hide or omit it.
Do not invent a quiz when the content does not contain one; in that case, proceed normally to the next step when ready.
Keep quiz wording aligned with the lesson's phrasing and respond in the user's language.
If a quiz and answer are present, ask the quiz from the content and wait for the user's response. Grade the answer
using the provided answer in the content, then call ` + "`recordQuizResult`" + ` with the stepId, question, correct answer,
user answer, and grading result. If the answer is incorrect, ask them to try again before moving on.
Do not reveal the correct answer or the user's answer in the chat. The answer should only appear inside the
` + "`recordQuizResult`" + ` tool call payload.

When the user asks for library or framework details, call the ` + "`getDocs`" + ` tool first and answer using its response.
`

// wrapLessonContent surrounds raw step markdown with the walkthrough
// instructions. The search hints are swapped for a restriction notice
// when the server is locked to one course.
func wrapLessonContent(content string, locked bool) string {
	parts := []string{lessonPrompt}
	if locked {
		parts = append(parts, courseRestrictionPrompt)
	} else {
		parts = append(parts, courseSearchPrompt)
	}
	parts = append(parts, quizPrompt)
	return strings.Join(parts, "\n") +
		"\n\nHere is the content for this step: <StepContent>" + content + "</StepContent>" +
		"\n\nWhen you're ready to continue, use the `nextCourseStep` tool to move to the next step."
}

// buildIntroductionPrompt is the welcome block served on a plain
// course start.
func buildIntroductionPrompt(courseTitle, courseID string) string {
	return fmt.Sprintf(`
This is a course to help a new user learn about %[1]s.
The following is the introduction content, please provide this text to the user EXACTLY as written below. Do not provide any other text or instructions:

# Welcome to the %[1]s Course!

Thank you for registering for the %[1]s course! This interactive guide will help you learn the material step by step.

## How This Course Works

- Each lesson is broken into multiple steps
- I'll guide you through the code examples and explanations
- You can ask questions at any time
- If you ever leave and come back, use the `+"`startCourseLesson`"+` tool to pick up where you left off. Just ask to "start the %[2]s course".
- Use the `+"`nextCourseStep`"+` tool to move to the next step when you're ready. Just ask to "move to the next step" when you are ready.
- If the user asks what courses are available, call the `+"`searchCourses`"+` tool with an empty query to return the full list.
- Use the `+"`searchCourses`"+` tool to search courses by query. Passing an empty or whitespace query returns the full list.
- Use the `+"`getCourseStatus`"+` tool to check your progress. You can just ask "get my course progress".
- Use the `+"`clearCourseProgress`"+` tool to reset your progress and start over. You can just ask "clear my course progress".

Type "start %[2]s course" and let's get started with your first lesson!
`, courseTitle, courseID)
}

// formatLessonPayload renders the standard step response: a course
// position header followed by the wrapped content.
func formatLessonPayload(courseID, lessonID, stepID, body string) string {
	return strings.Join([]string{
		"Course: " + courseID,
		"Lesson: " + lessonID,
		"Step: " + stepID,
		"",
		body,
	}, "\n")
}
