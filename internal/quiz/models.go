package quiz

// QuestionType discriminates how a question's options/correct payloads are
// encoded and how a submission is scored.
type QuestionType string

const (
	TypeMCQ       QuestionType = "mcq"       // single correct option
	TypeMRQ       QuestionType = "mrq"       // several correct options, all required
	TypeTrueFalse QuestionType = "tf"        // implicit true/false options
	TypeFlashcard QuestionType = "flashcard" // ungraded self-review
	TypeMatch     QuestionType = "match"     // term -> definition pairing
)

// KnownType reports whether t is one of the supported question types.
func KnownType(t QuestionType) bool {
	switch t {
	case TypeMCQ, TypeMRQ, TypeTrueFalse, TypeFlashcard, TypeMatch:
		return true
	}
	return false
}

// Attempt modes recorded on History rows.
const (
	ModeStudy     = "study"
	ModeSim       = "sim"
	ModeFlashcard = "flashcard"
)

type Test struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// TimeLimitMin is the default simulation time limit in minutes; 0 means
	// unlimited.
	TimeLimitMin int `json:"time_limit_min"`
	// NumQuestions caps how many questions a simulation samples; 0 means the
	// whole pool.
	NumQuestions int   `json:"num_questions,omitempty"`
	CreatedAt    int64 `json:"created_at,omitempty"`
}

// Question as stored. Options and Correct are opaque serialized payloads
// whose structure depends on Type; only the codec in this package may look
// inside them.
type Question struct {
	ID          string       `json:"id"`
	TestID      string       `json:"test_id"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Options     string       `json:"options,omitempty"`
	Correct     string       `json:"correct,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	// Image is a bare filename resolved by the asset server; never a path.
	Image string `json:"image,omitempty"`
}

// History is an immutable record of one graded attempt. Answers is a JSON
// object keyed by question id; its per-question payloads were encoded under
// the question type current at submission time and are never re-interpreted
// against a later type.
type History struct {
	ID      string  `json:"id"`
	UserID  string  `json:"user_id"`
	TestID  string  `json:"test_id"`
	Mode    string  `json:"mode"`
	Score   float64 `json:"score"`
	Answers string  `json:"answers"`
	Date    int64   `json:"date"`
}
