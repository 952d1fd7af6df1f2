package tcp

// Config TCP 서버 설정
type Config struct {
	Network        string // "tcp" 또는 "unix", 비어 있으면 tcp
	Address        string // 바인드 주소
	BasePort       int    // 첫 번째 포트
	Path           string // unix 소켓 기본 경로, 포트마다 "_<i>"가 붙는다
	NumPorts       int    // BasePort부터 연속으로 여는 포트 수
	MaxConnections int    // 동시 연결 수 제한, -1이면 무제한
}

// DefaultConfig 기본 TCP 설정 반환
func DefaultConfig() Config {
	return Config{
		Network:        Protocol,
		Address:        "127.0.0.1",
		BasePort:       5000,
		NumPorts:       1,
		MaxConnections: -1,
	}
}

// DefaultUnixConfig 기본 unix 소켓 설정 반환
func DefaultUnixConfig() Config {
	return Config{
		Network:        UnixProtocol,
		Path:           DefaultUnixPath,
		NumPorts:       1,
		MaxConnections: -1,
	}
}
