package interfaces

import (
	"os"
	"time"
)

// RandomSource는 MAC 주소 합성을 위한 난수 공급원을 추상화하는
// 인터페이스입니다. 주입 가능하게 하여 경계 재시도 알고리즘을
// 결정적으로 테스트할 수 있습니다.
type RandomSource interface {
	// Bytes는 n개의 난수 바이트를 반환합니다
	Bytes(n int) ([]byte, error)
}

// Clock은 시간 관련 작업을 추상화하는 인터페이스입니다
type Clock interface {
	// Now는 현재 시간을 반환합니다
	Now() time.Time
}

// FileSystem은 파일 시스템 작업을 추상화하는 인터페이스입니다
type FileSystem interface {
	// ReadFile은 파일을 읽습니다
	ReadFile(path string) ([]byte, error)

	// WriteFile은 파일에 데이터를 씁니다
	WriteFile(path string, data []byte, perm os.FileMode) error

	// Exists는 파일이나 디렉토리가 존재하는지 확인합니다
	Exists(path string) bool
}
