// Package squad loads SQuAD-format question-answering datasets. The
// nested article/paragraph/qa JSON layout, flat CSV records and flat
// parquet records all flatten into the same Example stream the pipeline
// consumes.
package squad

import (
	"github.com/google/uuid"
)

// Dataset is the nested SQuAD JSON file layout.
type Dataset struct {
	Version string    `json:"version"`
	Data    []Article `json:"data"`
}

// Article groups the paragraphs of one source document.
type Article struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph is one context passage with its questions.
type Paragraph struct {
	Context string `json:"context"`
	QAs     []QA   `json:"qas"`
}

// QA is one question over a paragraph's context.
type QA struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	IsImpossible bool     `json:"is_impossible"`
	Answers      []Answer `json:"answers"`
}

// Answer is a ground-truth answer: its text and the character offset of
// its first character in the context.
type Answer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// Example is one flattened (question, context, answer) record. An empty
// Answers slice marks an unanswerable example.
type Example struct {
	ID       string
	Question string
	Context  string
	Answers  []Answer
}

// Unanswerable reports whether the example has no ground-truth answer.
func (e Example) Unanswerable() bool { return len(e.Answers) == 0 }

// Examples flattens the dataset into one Example per question. Questions
// without an id are assigned a fresh one.
func (d *Dataset) Examples() []Example {
	var examples []Example
	for _, article := range d.Data {
		for _, para := range article.Paragraphs {
			for _, qa := range para.QAs {
				id := qa.ID
				if id == "" {
					id = uuid.NewString()
				}
				answers := qa.Answers
				if qa.IsImpossible {
					answers = nil
				}
				examples = append(examples, Example{
					ID:       id,
					Question: qa.Question,
					Context:  para.Context,
					Answers:  answers,
				})
			}
		}
	}
	return examples
}
