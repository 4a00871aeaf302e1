package errors

// ErrorCode identifies a specific failure reported to API callers
type ErrorCode int32

const (
	ErrorCode_UNSPECIFIED ErrorCode = 0
	ErrorCode_HTTP_OK     ErrorCode = 200

	// Generic
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS   ErrorCode = 1003
	ErrorCode_UNAUTHORIZED     ErrorCode = 1004
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1005
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1006

	// Authentication
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 1101
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = 1102

	// Criteria model
	ErrorCode_INVALID_WEIGHTS   ErrorCode = 2001
	ErrorCode_INVALID_TYPE      ErrorCode = 2002
	ErrorCode_INVALID_SCALE     ErrorCode = 2003
	ErrorCode_DUPLICATE_NAME    ErrorCode = 2004
	ErrorCode_INVALID_CHECKLIST ErrorCode = 2005
	ErrorCode_IN_USE            ErrorCode = 2006
	ErrorCode_INVALID_RESULT    ErrorCode = 2007
	ErrorCode_SCORING_METHOD    ErrorCode = 2008

	// Transcript model
	ErrorCode_INVALID_SEGMENT_TIMING ErrorCode = 3001
	ErrorCode_SEGMENT_OVERLAP        ErrorCode = 3002
	ErrorCode_UNKNOWN_REFERENCE      ErrorCode = 3003

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED      ErrorCode = 4001
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED ErrorCode = 4002
	ErrorCode_DB_TRANSACTION_FAILED           ErrorCode = 4003
	ErrorCode_IMPORT_FAILED                   ErrorCode = 4004
)

var codeNames = map[ErrorCode]string{
	ErrorCode_UNSPECIFIED:                     "UNSPECIFIED",
	ErrorCode_HTTP_OK:                         "OK",
	ErrorCode_INTERNAL:                        "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:                "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                       "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:                  "ALREADY_EXISTS",
	ErrorCode_UNAUTHORIZED:                    "UNAUTHORIZED",
	ErrorCode_UNAUTHENTICATED:                 "UNAUTHENTICATED",
	ErrorCode_INVALID_PAYLOAD:                 "INVALID_PAYLOAD",
	ErrorCode_AUTH_INVALID_TOKEN:              "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:              "AUTH_TOKEN_EXPIRED",
	ErrorCode_INVALID_WEIGHTS:                 "INVALID_WEIGHTS",
	ErrorCode_INVALID_TYPE:                    "INVALID_TYPE",
	ErrorCode_INVALID_SCALE:                   "INVALID_SCALE",
	ErrorCode_DUPLICATE_NAME:                  "DUPLICATE_NAME",
	ErrorCode_INVALID_CHECKLIST:               "INVALID_CHECKLIST",
	ErrorCode_IN_USE:                          "IN_USE",
	ErrorCode_INVALID_RESULT:                  "INVALID_RESULT",
	ErrorCode_SCORING_METHOD:                  "SCORING_METHOD",
	ErrorCode_INVALID_SEGMENT_TIMING:          "INVALID_SEGMENT_TIMING",
	ErrorCode_SEGMENT_OVERLAP:                 "SEGMENT_OVERLAP",
	ErrorCode_UNKNOWN_REFERENCE:               "UNKNOWN_REFERENCE",
	ErrorCode_INTEGRATION_STORAGE_FAILED:      "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED: "INTEGRATION_EXTERNAL_API_FAILED",
	ErrorCode_DB_TRANSACTION_FAILED:           "DB_TRANSACTION_FAILED",
	ErrorCode_IMPORT_FAILED:                   "IMPORT_FAILED",
}

// String returns the wire name of the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return codeNames[ErrorCode_UNSPECIFIED]
}

// ParseErrorCode resolves a wire name back to its code
func ParseErrorCode(name string) ErrorCode {
	for code, n := range codeNames {
		if n == name {
			return code
		}
	}
	return ErrorCode_UNSPECIFIED
}

// MarshalText encodes the code by name so JSON bodies stay readable
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a code from its name
func (c *ErrorCode) UnmarshalText(b []byte) error {
	*c = ParseErrorCode(string(b))
	return nil
}

// Kind groups codes into the categories callers branch on
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindAuthorization Kind = "AUTHORIZATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindInternal      Kind = "INTERNAL"
)

// Kind returns the category of the code
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrorCode_INVALID_ARGUMENT, ErrorCode_INVALID_PAYLOAD,
		ErrorCode_INVALID_WEIGHTS, ErrorCode_INVALID_TYPE, ErrorCode_INVALID_SCALE,
		ErrorCode_DUPLICATE_NAME, ErrorCode_INVALID_CHECKLIST, ErrorCode_INVALID_RESULT,
		ErrorCode_SCORING_METHOD, ErrorCode_INVALID_SEGMENT_TIMING,
		ErrorCode_SEGMENT_OVERLAP, ErrorCode_UNKNOWN_REFERENCE:
		return KindValidation
	case ErrorCode_UNAUTHORIZED, ErrorCode_UNAUTHENTICATED,
		ErrorCode_AUTH_INVALID_TOKEN, ErrorCode_AUTH_TOKEN_EXPIRED:
		return KindAuthorization
	case ErrorCode_NOT_FOUND:
		return KindNotFound
	case ErrorCode_ALREADY_EXISTS, ErrorCode_IN_USE:
		return KindConflict
	default:
		return KindInternal
	}
}
