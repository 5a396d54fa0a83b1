// Package errors provides structured, coded errors for LexMind.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (corpus folder, source files, index files)
//   - 3XX: Network errors (remote embedding providers)
//   - 4XX: Validation errors (queries, vectors, corpus content)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the current operation.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation; the process continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning degrades the operation without failing it.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound      = "ERR_201_FILE_NOT_FOUND"
	ErrCodeCorpusDirMissing  = "ERR_202_CORPUS_DIR_MISSING"
	ErrCodeSourceMissing     = "ERR_203_SOURCE_MISSING"
	ErrCodeCorruptIndex      = "ERR_204_CORRUPT_INDEX"
	ErrCodeUnsupportedFormat = "ERR_205_UNSUPPORTED_FORMAT"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeEmptyCorpus       = "ERR_403_EMPTY_CORPUS"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeInvalidAlpha      = "ERR_405_INVALID_ALPHA"
	ErrCodeInvalidPath       = "ERR_406_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed     = "ERR_504_INDEX_FAILED"
)

// categoryFromCode extracts the category from the leading digit of the code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	}
	if isRetryableCode(code) || isRecoverableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}

// isRecoverableCode reports codes that the retrieval pipeline absorbs:
// the affected component scores 0 or the request yields no results.
func isRecoverableCode(code string) bool {
	switch code {
	case ErrCodeEmptyCorpus, ErrCodeEmbeddingFailed, ErrCodeDimensionMismatch, ErrCodeSourceMissing:
		return true
	default:
		return false
	}
}
