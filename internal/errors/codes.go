// Package errors provides structured error handling for GuideMCP.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Repository and index state errors
//   - 3XX: Network errors
//   - 4XX: Validation and lookup errors
//   - 5XX: Internal errors (parse, embedding)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryRepoState indicates local checkout or index state errors
	// that need manual remediation.
	CategoryRepoState Category = "REPO_STATE"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation and lookup errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeUnknownFamily  = "ERR_103_UNKNOWN_FAMILY"

	// Repository and index state errors (200-299)
	ErrCodeRepoState     = "ERR_201_REPO_STATE"
	ErrCodeRepoDirty     = "ERR_202_REPO_DIRTY"
	ErrCodeRepoMismatch  = "ERR_203_REPO_MISMATCH"
	ErrCodeCorruptIndex  = "ERR_204_CORRUPT_INDEX"
	ErrCodeIndexLocked   = "ERR_205_INDEX_LOCKED"
	ErrCodeFileNotFound  = "ERR_206_FILE_NOT_FOUND"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"

	// Validation and lookup errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeNotFound          = "ERR_403_NOT_FOUND"
	ErrCodeDimensionMismatch = "ERR_404_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeParseFailed     = "ERR_502_PARSE_FAILED"
	ErrCodeEmbeddingFailed = "ERR_503_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_504_SEARCH_FAILED"
	ErrCodeIndexFailed     = "ERR_505_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit of the numeric portion
	// (e.g., '1' from "ERR_101_CONFIG_NOT_FOUND").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryRepoState
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeRepoState, ErrCodeRepoDirty, ErrCodeRepoMismatch, ErrCodeCorruptIndex:
		// Needs manual remediation; the pipeline must stop, not diverge.
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeEmbeddingFailed:
		return true
	default:
		return false
	}
}
