package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoices QuestionType = "multiple-choices"
	QuestionTypeMultipleAnswers QuestionType = "multiple-answers"
	QuestionTypeShortAnswer     QuestionType = "short-answer"
)

// Question belongs to exactly one test.
// Minus is a penalty weight that exists in the schema but is not applied by
// the scoring path.
type Question struct {
	ID                int          `json:"id"`
	TestID            int          `json:"test_id"`
	QuestionText      string       `json:"question_text"`
	QuestionMDX       *string      `json:"question_mdx,omitempty"`
	QuestionType      QuestionType `json:"question_type"`
	Points            int          `json:"points"`
	Minus             int          `json:"minus"`
	ValidationPattern *string      `json:"validation_pattern,omitempty"`
}

// Choice belongs to one choice-type question.
type Choice struct {
	ID         int     `json:"id"`
	QuestionID int     `json:"question_id"`
	ChoiceText string  `json:"choice_text"`
	ChoiceMDX  *string `json:"choice_mdx,omitempty"`
}

// CorrectionEntry is one answer-key row. Exactly one of ChoiceID/AnswerText is
// set, depending on the question type. Multi-answer questions may carry
// several entries for the same question.
type CorrectionEntry struct {
	ID         int     `json:"id"`
	QuestionID int     `json:"question_id"`
	ChoiceID   *int    `json:"choice_id,omitempty"`
	AnswerText *string `json:"answer_text,omitempty"`
}

// AddQuestionRequest is the payload for adding a question to a test.
type AddQuestionRequest struct {
	QuestionText      string  `json:"question_text" binding:"required,min=1,max=5000"`
	QuestionMDX       *string `json:"question_mdx" binding:"omitempty"`
	QuestionType      string  `json:"question_type" binding:"required,oneof=multiple-choices multiple-answers short-answer"`
	Points            int     `json:"points" binding:"required,min=1"`
	Minus             int     `json:"minus" binding:"min=0"`
	ValidationPattern *string `json:"validation_pattern" binding:"omitempty,max=500"`
}

// AddChoiceRequest is the payload for adding a choice to a question.
type AddChoiceRequest struct {
	ChoiceText string  `json:"choice_text" binding:"required,min=1,max=2000"`
	ChoiceMDX  *string `json:"choice_mdx" binding:"omitempty"`
}

// SetCorrectionRequest replaces the answer key entries of a question.
type SetCorrectionRequest struct {
	Entries []CorrectionEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// CorrectionEntryRequest is one answer-key entry in SetCorrectionRequest.
type CorrectionEntryRequest struct {
	ChoiceID   *int    `json:"choice_id" binding:"omitempty"`
	AnswerText *string `json:"answer_text" binding:"omitempty,max=2000"`
}
