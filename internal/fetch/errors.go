package fetch

import (
	"errors"
	"fmt"
)

// ErrNoSourceURL 表示记录既没有原图地址也没有大图预览地址。
var ErrNoSourceURL = errors.New("record has no downloadable url")

// NetworkError 描述一次失败的远端请求：传输层错误（含超时）或非 2xx 状态码。
// 出现该错误时缓存不会被写入。
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the failure was caused by the request deadline.
func (e *NetworkError) IsTimeout() bool {
	var timeout interface{ Timeout() bool }
	return errors.As(e.Err, &timeout) && timeout.Timeout()
}
