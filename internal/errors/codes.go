// Package errors provides structured error handling for fcmirror.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Local filesystem errors
//   - 3XX: Transport errors (HTTP, decoding)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//   - 6XX: Permission and user cancellation
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates local filesystem errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates transport errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryPermission indicates a denied or cancelled user grant.
	CategoryPermission Category = "PERMISSION"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission  = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull        = "ERR_203_DISK_FULL"
	ErrCodeFileWrite       = "ERR_204_FILE_WRITE"
	ErrCodeHistoryCorrupt  = "ERR_205_HISTORY_CORRUPT"
	ErrCodeDirectoryCreate = "ERR_206_DIRECTORY_CREATE"
	ErrCodeFSConflict      = "ERR_207_FS_CONFLICT"
	ErrCodeDestinationBusy = "ERR_208_DESTINATION_BUSY"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeDownloadFailed     = "ERR_303_DOWNLOAD_FAILED"
	ErrCodeHTTPStatus         = "ERR_304_HTTP_STATUS"
	ErrCodeBadResponse        = "ERR_305_BAD_RESPONSE"
	ErrCodePaginationLoop     = "ERR_306_PAGINATION_LOOP"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_404_QUERY_EMPTY"
	ErrCodeInvalidPath  = "ERR_406_INVALID_PATH"
	ErrCodeInvalidURL   = "ERR_407_INVALID_URL"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSearchFailed  = "ERR_503_SEARCH_FAILED"
	ErrCodeTreeTooDeep   = "ERR_505_TREE_TOO_DEEP"
	ErrCodeProtocol      = "ERR_506_PROTOCOL"
	ErrCodeWorkerStopped = "ERR_507_WORKER_STOPPED"

	// Permission errors (600-699)
	ErrCodeGrantDenied    = "ERR_601_GRANT_DENIED"
	ErrCodeGrantCancelled = "ERR_602_GRANT_CANCELLED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '6':
		return CategoryPermission
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDiskFull, ErrCodeHistoryCorrupt, ErrCodeProtocol, ErrCodeTreeTooDeep:
		return SeverityFatal
	case ErrCodeGrantDenied, ErrCodeGrantCancelled:
		return SeverityInfo
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a condition that a
// second run is likely to get past. Nothing is retried automatically.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeDownloadFailed, ErrCodeDestinationBusy:
		return true
	default:
		return false
	}
}
