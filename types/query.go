package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// ChatParams is the grounded query request: a question answered against one
// or more previously ingested documents.
type ChatParams struct {
	Question string   `json:"question" validate:"required"`
	DocIDs   []string `json:"doc_ids" validate:"required,min=1,dive,required"`
}

// AskParams is the ungrounded query request: open-domain, no documents.
type AskParams struct {
	Question string `json:"question" validate:"required"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *ChatParams) Validate() map[string]string {
	return validateStruct(params)
}

func (params *AskParams) Validate() map[string]string {
	return validateStruct(params)
}

func validateStruct(s any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

// AnswerResponse is the successful body of both query endpoints.
type AnswerResponse struct {
	Answer      string   `json:"answer"`
	SkippedDocs []string `json:"skipped_docs,omitempty"`
}

// FileResult reports the outcome of one file in a multi-file upload. Exactly
// one of DocID or Error is set.
type FileResult struct {
	Filename   string `json:"filename"`
	DocID      string `json:"doc_id,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UploadResponse is the body of the ingestion endpoint: one result per
// uploaded file, success and failure mixed.
type UploadResponse struct {
	Results []FileResult `json:"results"`
}
