package text2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/text2sql/text2sql/internal/database"
	"github.com/text2sql/text2sql/internal/executor"
	"github.com/text2sql/text2sql/internal/nl2sql"
	"github.com/text2sql/text2sql/internal/observability"
	"github.com/text2sql/text2sql/internal/schema"
)

type SchemaReader interface {
	Read(ctx context.Context) (schema.Descriptor, error)
}

type Translator interface {
	Translate(ctx context.Context, req nl2sql.Request) (nl2sql.Result, error)
	Provider() string
}

type Answer struct {
	SQL      string          `json:"sql"`
	Results  executor.Result `json:"results"`
	Provider string          `json:"-"`
	Model    string          `json:"-"`
}

type Service struct {
	reader     SchemaReader
	translator Translator
	executor   executor.Executor
	logger     *slog.Logger
}

func NewService(reader SchemaReader, translator Translator, exec executor.Executor, logger *slog.Logger) (*Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("schema reader is required")
	}
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{reader: reader, translator: translator, executor: exec, logger: logger}, nil
}

// Ask reads the schema, has the model write a statement for the question,
// and runs that statement. Every call reads the schema afresh.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	desc, err := s.Schema(ctx)
	if err != nil {
		observability.ObserveQuestion(string(KindDatabase))
		return Answer{}, err
	}

	modelStart := time.Now()
	translated, err := s.translator.Translate(ctx, nl2sql.Request{Question: question, Schema: desc.Format()})
	observability.ObserveModelCall(s.translator.Provider(), time.Since(modelStart), err)
	if err != nil {
		observability.ObserveQuestion(string(KindModel))
		return Answer{}, &Error{Kind: KindModel, Err: fmt.Errorf("translate question: %w", err)}
	}
	s.logger.DebugContext(ctx, "question translated",
		"provider", translated.Provider,
		"model", translated.Model,
		"sql", translated.SQL,
	)

	execStart := time.Now()
	result, err := s.executor.Execute(ctx, translated.SQL)
	observability.ObserveExecution(len(result.Rows), time.Since(execStart), err)
	if err != nil {
		kind := KindExecution
		if errors.Is(err, database.ErrUnavailable) {
			kind = KindDatabase
		}
		observability.ObserveQuestion(string(kind))
		return Answer{}, &Error{Kind: kind, Err: err}
	}

	observability.ObserveQuestion("ok")
	return Answer{
		SQL:      translated.SQL,
		Results:  result,
		Provider: translated.Provider,
		Model:    translated.Model,
	}, nil
}

func (s *Service) Schema(ctx context.Context) (schema.Descriptor, error) {
	desc, err := s.reader.Read(ctx)
	if err != nil {
		return schema.Descriptor{}, &Error{Kind: KindDatabase, Err: fmt.Errorf("read schema: %w", err)}
	}
	observability.SetSchemaTables(len(desc.Tables))
	return desc, nil
}
