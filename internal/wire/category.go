package wire

import (
	"github.com/cockroachdb/errors"
)

// Category classifies an internal error for logging and for choosing a
// JSON-RPC error code when one hasn't been set explicitly.
type Category string

const (
	// CategoryRPC covers protocol-level faults: malformed JSON, a bad
	// envelope shape, an unknown method, bad params.
	CategoryRPC Category = "rpc"
	// CategoryTransport covers framing/resource faults: an oversize
	// message or an oversize buffer.
	CategoryTransport Category = "transport"
	// CategoryInternal covers anything else — a handler panic, an
	// unexpected marshal failure.
	CategoryInternal Category = "internal"
)

// WithCategory attaches a category detail to err, following the teacher's
// pattern of storing classification as cockroachdb/errors detail strings
// rather than a bespoke wrapper type.
func WithCategory(err error, cat Category) error {
	if err == nil {
		return nil
	}
	return errors.WithDetail(err, "category:"+string(cat))
}

// WithCode attaches a JSON-RPC error code detail to err.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return errors.WithDetailf(err, "code:%d", code)
}

// Classify builds a category+code-tagged error in one call.
func Classify(err error, cat Category, code int) error {
	return WithCode(WithCategory(err, cat), code)
}

// GetCategory recovers the category attached by WithCategory, defaulting to
// CategoryInternal when none was attached.
func GetCategory(err error) Category {
	for _, d := range errors.GetAllDetails(err) {
		if cat, ok := parsePrefixed(d, "category:"); ok {
			return Category(cat)
		}
	}
	return CategoryInternal
}

// GetCode recovers the JSON-RPC code attached by WithCode, defaulting to
// CodeInternalError when none was attached.
func GetCode(err error) int {
	for _, d := range errors.GetAllDetails(err) {
		if codeStr, ok := parsePrefixed(d, "code:"); ok {
			code := 0
			neg := false
			for i, r := range codeStr {
				if i == 0 && r == '-' {
					neg = true
					continue
				}
				if r < '0' || r > '9' {
					return CodeInternalError
				}
				code = code*10 + int(r-'0')
			}
			if neg {
				code = -code
			}
			return code
		}
	}
	return CodeInternalError
}

func parsePrefixed(s, prefix string) (string, bool) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

// ToError converts a classified Go error into a wire Error object suitable
// for a response envelope.
func ToError(err error) *Error {
	code := GetCode(err)
	return &Error{Code: code, Message: DefaultMessage(code)}
}
