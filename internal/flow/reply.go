// Package flow implements the conversation state machine: onboarding,
// commands, lesson delivery, and quizzes. It is channel-agnostic; adapters
// translate inbound webhooks or updates into events and render replies.
package flow

import "context"

// Choice is one selectable option attached to a message. Data is the
// structured payload the adapter sends back when the option is chosen,
// e.g. "BOARD:CBSE". Channels without buttons render choices as text.
type Choice struct {
	Label string
	Data  string
}

// Message is one outbound message, optionally carrying choices or a request
// for the user's phone contact.
type Message struct {
	Text           string
	Choices        []Choice
	RequestContact bool
}

// Reply is everything the engine wants sent back for one inbound event, plus
// an optional background task whose own reply must be delivered when done.
type Reply struct {
	Messages []Message
	Task     *LessonTask
}

// LessonTask is deferred lesson generation. The adapter decides how to run it
// (typically a goroutine) and delivers the returned reply to the same user.
// Run folds failures into user-facing messages and never panics.
type LessonTask struct {
	UserID string
	Run    func(ctx context.Context) Reply
}

// text builds a single-message reply.
func text(s string) Reply {
	return Reply{Messages: []Message{{Text: s}}}
}

// withChoices builds a single-message reply carrying choices.
func withChoices(s string, choices []Choice) Reply {
	return Reply{Messages: []Message{{Text: s, Choices: choices}}}
}
