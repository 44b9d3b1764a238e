package entities

// Guest는 하이퍼바이저에 정의된 가상 머신과 그 네트워크 인터페이스들을
// 나타냅니다
type Guest struct {
	Name    string
	Running bool
	// Interfaces는 게스트 도메인 XML에서 파싱된 인터페이스 디바이스들입니다
	Interfaces []*NetworkInterfaceDevice
}

// VirtualNetwork는 하이퍼바이저에 정의된 가상 네트워크입니다
type VirtualNetwork struct {
	Name   string
	Active bool
}
