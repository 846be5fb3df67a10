package common

import (
	"fmt"
	"os"

	"cvcraft/internal/errors"
	"cvcraft/internal/resume"
	"cvcraft/internal/utils"
)

// FileProcessor loads resume files and writes command output.
type FileProcessor struct {
	logger  *errors.Logger
	decode  resume.DecodeOptions
	maxSize int64
}

// NewFileProcessor returns a processor that decodes resumes with decode.
func NewFileProcessor(logger *errors.Logger, decode resume.DecodeOptions) *FileProcessor {
	return &FileProcessor{logger: logger, decode: decode}
}

// WithMaxSize rejects input files larger than n bytes. Zero disables the check.
func (fp *FileProcessor) WithMaxSize(n int64) *FileProcessor {
	fp.maxSize = n
	return fp
}

// LoadDocuments decodes each resume file, keeping the argument order.
func (fp *FileProcessor) LoadDocuments(filenames ...string) ([]*resume.Document, error) {
	docs := make([]*resume.Document, len(filenames))

	for i, filename := range filenames {
		if !utils.IsResumeFile(filename) {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Unsupported resume file %s (expected .json, .yaml or .yml)", filename), nil)
		}
		if err := utils.CheckResumeFile(filename, fp.maxSize); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		doc, err := resume.Load(filename, fp.decode)
		if err != nil {
			return nil, err
		}
		if fp.logger != nil {
			fp.logger.Debug("Resume loaded", "file", filename, "index", i)
		}
		docs[i] = doc
	}

	return docs, nil
}

// WriteFile writes content to filename, creating parent directories.
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureParentDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot prepare output path: %s", filename), err)
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}
