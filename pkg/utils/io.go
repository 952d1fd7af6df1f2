package utils

import (
	"errors"
	"io"
	"log/slog"
	"net"
)

// CloseWithLog 리소스를 닫고 에러 발생 시 리소스 타입과 함께 로그를 남긴다.
// 이미 닫힌 네트워크 연결은 무시한다.
func CloseWithLog(c io.Closer, attrs ...any) {
	if c == nil {
		return
	}
	err := c.Close()
	if err == nil || errors.Is(err, net.ErrClosed) {
		return
	}
	slog.Warn("Error closing resource", append([]any{"resource", TypeName(c), "err", err}, attrs...)...)
}
