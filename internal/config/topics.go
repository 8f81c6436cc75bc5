package config

const (
	// TopicQuizGenerate is the NSQ topic for quiz generation tasks.
	TopicQuizGenerate = "quiz.generate"

	// TopicQuizResult is the NSQ topic for quiz generation results (success/failure).
	TopicQuizResult = "quiz.result"
)
