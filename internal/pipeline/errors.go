package pipeline

import "fmt"

// PipelineLexicalError reports an unrecognized character or malformed
// token while scanning pipeline text.
type PipelineLexicalError struct {
	Line, Column int
	Msg          string
}

func (e *PipelineLexicalError) Error() string {
	return fmt.Sprintf("pipeline:%d:%d: lexical error: %s", e.Line, e.Column, e.Msg)
}

// PipelineSyntaxError reports a token sequence that does not match the
// pipeline grammar.
type PipelineSyntaxError struct {
	Line, Column int
	Msg          string
}

func (e *PipelineSyntaxError) Error() string {
	return fmt.Sprintf("pipeline:%d:%d: syntax error: %s", e.Line, e.Column, e.Msg)
}

// PipelineSemanticError reports a grammatically valid pipeline that
// names an unregistered pass or binds an argument inconsistently with
// its schema. Parse raises it as soon as it looks a pass up or binds
// its arguments; unlike the lexical/syntax kinds it carries no
// position.
type PipelineSemanticError struct {
	Msg string
}

func (e *PipelineSemanticError) Error() string {
	return "pipeline: " + e.Msg
}
