package jsonrpc

import "strconv"

// Status is a framework status code. Handlers, services and the dispatcher report
// outcomes with it; non-zero values are translated into JSON-RPC errors on the wire.
type Status uint32

// Framework status codes. The numeric values are part of the wire contract: custom
// method failures are reported to clients with these codes unchanged.
const (
	ErrorNone              Status = 0
	ErrorGeneral           Status = 1
	ErrorUnavailable       Status = 2
	ErrorAsyncFailed       Status = 3
	ErrorAsyncAborted      Status = 4
	ErrorIllegalState      Status = 5
	ErrorOpeningFailed     Status = 6
	ErrorPendingShutdown   Status = 8
	ErrorAlreadyConnected  Status = 9
	ErrorConnectionClosed  Status = 10
	ErrorTimedOut          Status = 11
	ErrorInProgress        Status = 12
	ErrorUnknownKey        Status = 22
	ErrorIncompleteConfig  Status = 23
	ErrorPrivilegedRequest Status = 24
	ErrorRPCCallFailed     Status = 25
	ErrorDuplicateKey      Status = 29
	ErrorBadRequest        Status = 30
	ErrorInvalidSignature  Status = 38
	ErrorReadError         Status = 39
	ErrorWriteError        Status = 40
	ErrorInvalidDesignator Status = 41
	ErrorUnauthenticated   Status = 42
	ErrorNotExist          Status = 43
	ErrorNotSupported      Status = 44
	ErrorInvalidRange      Status = 45
)

var statusText = map[Status]string{
	ErrorNone:              "ERROR_NONE",
	ErrorGeneral:           "ERROR_GENERAL",
	ErrorUnavailable:       "ERROR_UNAVAILABLE",
	ErrorAsyncFailed:       "ERROR_ASYNC_FAILED",
	ErrorAsyncAborted:      "ERROR_ASYNC_ABORTED",
	ErrorIllegalState:      "ERROR_ILLEGAL_STATE",
	ErrorOpeningFailed:     "ERROR_OPENING_FAILED",
	ErrorPendingShutdown:   "ERROR_PENDING_SHUTDOWN",
	ErrorAlreadyConnected:  "ERROR_ALREADY_CONNECTED",
	ErrorConnectionClosed:  "ERROR_CONNECTION_CLOSED",
	ErrorTimedOut:          "ERROR_TIMEDOUT",
	ErrorInProgress:        "ERROR_INPROGRESS",
	ErrorUnknownKey:        "ERROR_UNKNOWN_KEY",
	ErrorIncompleteConfig:  "ERROR_INCOMPLETE_CONFIG",
	ErrorPrivilegedRequest: "ERROR_PRIVILEGED_REQUEST",
	ErrorRPCCallFailed:     "ERROR_RPC_CALL_FAILED",
	ErrorDuplicateKey:      "ERROR_DUPLICATE_KEY",
	ErrorBadRequest:        "ERROR_BAD_REQUEST",
	ErrorInvalidSignature:  "ERROR_INVALID_SIGNATURE",
	ErrorReadError:         "ERROR_READ_ERROR",
	ErrorWriteError:        "ERROR_WRITE_ERROR",
	ErrorInvalidDesignator: "ERROR_INVALID_DESIGNATOR",
	ErrorUnauthenticated:   "ERROR_UNAUTHENTICATED",
	ErrorNotExist:          "ERROR_NOT_EXIST",
	ErrorNotSupported:      "ERROR_NOT_SUPPORTED",
	ErrorInvalidRange:      "ERROR_INVALID_RANGE",
}

// String returns the symbolic name of the status, or "ERROR_<n>" for codes
// without a registered name.
func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return "ERROR_" + strconv.FormatUint(uint64(s), 10)
}

// Text renders the numeric code as a decimal string ("0", "22", ...).
func (s Status) Text() string {
	return strconv.FormatUint(uint64(s), 10)
}
