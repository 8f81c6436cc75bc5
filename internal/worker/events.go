package worker

// QuizGeneratePayload is the quiz.generate task body.
type QuizGeneratePayload struct {
	QuizID        string `json:"quiz_id"`
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
	CorrelationID string `json:"correlation_id"`
}
