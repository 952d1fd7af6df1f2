package ipc

// Server 프로토콜별 IPC 서버들의 공통 인터페이스
// TCP, HTTP, NATS 등 모든 IPC 서버가 구현해야 하는 기본 메서드들을 정의
type Server interface {
	// 서버 시작
	Start() error

	// 서버 중지
	Stop()

	// 서버 이름 (식별자로 사용: "tcp", "http", "nats")
	Name() string
}
