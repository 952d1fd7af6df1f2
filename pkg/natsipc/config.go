package natsipc

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Config NATS IPC 설정
type Config struct {
	URL           string
	Subject       string // 명령을 받는 subject
	Name          string // 클라이언트 이름
	Queue         string // 여러 데몬이 같은 subject를 나눠 받을 때의 queue group
	Timeout       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig 기본 NATS 설정 반환
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       "gstd.cmd",
		Name:          "gstd",
		Queue:         "gstd",
		Timeout:       2 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}
