package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
	cause   error
}

func (e Errno) Error() string {
	return e.Message
}

// Unwrap 返回被包装的底层错误
func (e Errno) Unwrap() error {
	return e.cause
}

// Is 按错误码比较，WithMessage / Wrap 之后 errors.Is 依然成立
func (e Errno) Is(target error) bool {
	switch t := target.(type) {
	case Errno:
		return t.Code == e.Code
	case *Errno:
		return t != nil && t.Code == e.Code
	}
	return false
}

// WithMessage 替换错误描述，保留错误码
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Wrap 把底层错误挂到 Errno 上，描述追加底层错误信息
func (e Errno) Wrap(err error) Errno {
	if err == nil {
		return e
	}
	e.cause = err
	e.Message = e.Message + ": " + err.Error()
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrCache            = Errno{Code: 10005, Message: "Cache error"}
)

// Registry Errors (20000+)
var (
	ErrNetworkNotFound = Errno{Code: 20101, Message: "Network not found"}
	ErrAssetNotFound   = Errno{Code: 20102, Message: "Asset not found"}
	ErrAccountNotFound = Errno{Code: 20103, Message: "Account not found"}
)

// Send Workflow Errors (30000+)
var (
	ErrParseFailure      = Errno{Code: 30101, Message: "Missing params. Requires gasPrice, gasLimit, to, data, nonce, from, value, and chainId"}
	ErrValidation        = Errno{Code: 30102, Message: "Validation failed"}
	ErrUnknownAction     = Errno{Code: 30103, Message: "Unknown workflow action"}
	ErrBroadcast         = Errno{Code: 30104, Message: "Broadcast failed"}
	ErrStateMismatch     = Errno{Code: 30105, Message: "Event not allowed in current workflow state"}
	ErrDraftFrozen       = Errno{Code: 30106, Message: "Transaction draft is frozen after signing"}
	ErrSenderImmutable   = Errno{Code: 30107, Message: "Sender account cannot change during a workflow"}
	ErrSessionNotFound   = Errno{Code: 30108, Message: "Send session not found"}
	ErrSignerUnavailable = Errno{Code: 30109, Message: "No signer available for account"}
)
