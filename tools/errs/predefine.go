package errs

// 错误码段：1xxx 通用；11xx 发号器
const (
	ArgsError           = 1001
	InternalError       = 1002
	RecordNotFoundError = 1003
	DuplicateKeyError   = 1004

	AllocatorUnavailableError = 1101 // 共享快存不可用 / 回源失败，可重试
	BootstrapTimeoutError     = 1102 // 计数器初始化等锁超时，可重试
)

var (
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrInternal       = NewCodeError(InternalError, "InternalError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFound")
	ErrDuplicateKey   = NewCodeError(DuplicateKeyError, "DuplicateKey")

	ErrAllocatorUnavailable = NewCodeError(AllocatorUnavailableError, "AllocatorUnavailable")
	ErrBootstrapTimeout     = NewCodeError(BootstrapTimeoutError, "BootstrapTimeout")
)
