package core

// # Error Codes Reference
//
// MapError turns technical errors into messages with a short code users can
// quote to support staff. Codes are grouped by category:
//
//	DB001-DB006    store errors (duplicates, connectivity, locking)
//	VAL001-VAL005  whole-file and row validation errors
//	FILE001-FILE006 file decoding errors
//	IMP001-IMP007  import run errors (wipe, batches, locks, cancellation)
//	KND001-KND002  unknown kinds and modes
//	RATE001        request rate limiting
//	ERR000         anything else; check the logs for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns are listed before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Store Errors (DB001-DB006)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Use merge mode to update existing records",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the file for duplicate emails or ids",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database is busy",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL005)
	// =========================================================================
	{
		pattern: "missing required fields",
		msg: UserMessage{
			Message: "Required columns are missing from the file",
			Action:  "Download the template to see the expected column names",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid amount",
		msg: UserMessage{
			Message: "Invalid amount detected",
			Action:  "Use a plain decimal number such as 49.99",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid email",
		msg: UserMessage{
			Message: "Invalid email address detected",
			Action:  "Check the email column for typos",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid day of week",
		msg: UserMessage{
			Message: "Invalid day of week detected",
			Action:  "Use monday through sunday",
			Code:    "VAL005",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit (50MB)",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload a .csv, .xlsx, .xls or .json file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Add at least one row below the header",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unterminated quoted value",
		msg: UserMessage{
			Message: "A quoted value is never closed",
			Action:  "Check the file for a stray quote character",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to import",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid csv file",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "Export the file again from your spreadsheet program",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid xlsx file",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "Save the workbook as .xlsx and try again",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid json file",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "The file must hold an object or a list of objects",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Import Run Errors (IMP001-IMP007)
	// =========================================================================
	{
		pattern: "failed to clear existing data",
		msg: UserMessage{
			Message: "Existing data could not be cleared, nothing was imported",
			Action:  "Please try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "another import for",
		msg: UserMessage{
			Message: "Another import of this kind is running",
			Action:  "Wait for it to finish and try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "import run not found",
		msg: UserMessage{
			Message: "Import not found",
			Action:  "The import may have expired. Please start a new one",
			Code:    "IMP004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Rows committed before cancelling were kept",
			Code:    "IMP005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "IMP006",
		},
	},
	{
		pattern: "batch ",
		msg: UserMessage{
			Message: "Some rows could not be saved",
			Action:  "Review the errors and import the failed rows again",
			Code:    "IMP007",
		},
	},

	// =========================================================================
	// Kind Errors (KND001-KND002)
	// =========================================================================
	{
		pattern: "unknown kind",
		msg: UserMessage{
			Message: "Unknown data type",
			Action:  "Use members, payments, attendance or classes",
			Code:    "KND001",
		},
	},
	{
		pattern: "unknown import mode",
		msg: UserMessage{
			Message: "Unknown import mode",
			Action:  "Use merge or replace",
			Code:    "KND002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback message with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(errors.New("another import for members is already running"))
//	// msg.Code == "IMP002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
