package common

import (
	"context"

	"cvcraft/internal/errors"
	"cvcraft/internal/resume"
)

// DocumentOperationFunc computes a result from loaded documents.
type DocumentOperationFunc[Output any] func(ctx context.Context, files []string, docs []*resume.Document) (Output, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(files []string, cfg CommandConfig)

// RunDocumentCommand loads every file in args, runs operation on the
// documents and writes the formatted result.
func RunDocumentCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	operation DocumentOperationFunc[Output],
	logDetails LogDetailsFunc,
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.Decode).WithMaxSize(cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandler(logger)

	docs, err := fileProcessor.LoadDocuments(args...)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(args, cmdConfig)
	}

	result, err := operation(ctx, args, docs)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
