package entities

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"virtnic-agent/internal/domain/errors"
)

// InterfaceKind는 인터페이스의 네트워크 연결 방식을 나타냅니다
type InterfaceKind string

const (
	KindBridge   InterfaceKind = "bridge"
	KindNetwork  InterfaceKind = "network"
	KindUser     InterfaceKind = "user"
	KindEthernet InterfaceKind = "ethernet"
	KindDirect   InterfaceKind = "direct"
)

// InterfaceKinds는 허용되는 모든 인터페이스 종류의 목록입니다
var InterfaceKinds = []InterfaceKind{
	KindBridge, KindNetwork, KindUser, KindEthernet, KindDirect,
}

// Valid는 닫힌 enum에 속하는 종류인지 확인합니다
func (k InterfaceKind) Valid() bool {
	switch k {
	case KindBridge, KindNetwork, KindUser, KindEthernet, KindDirect:
		return true
	}
	return false
}

// DefaultSourceMode는 direct 인터페이스의 기본 source mode입니다
const DefaultSourceMode = "vepa"

// macAddrPattern은 콜론으로 구분된 6쌍의 16진수 옥텟을 검증합니다
var macAddrPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// ValidateMACAddress는 MAC 주소 형식의 유효성을 검증합니다
func ValidateMACAddress(mac string) error {
	if !macAddrPattern.MatchString(mac) {
		return errors.NewValidationError(
			fmt.Sprintf("invalid MAC address format: %q", mac), nil)
	}
	return nil
}

// MACConflict는 MAC 주소 충돌 검사 결과입니다
type MACConflict struct {
	// Fatal은 실행 중인 게스트와의 충돌 여부입니다
	Fatal bool
	// Description은 충돌에 대한 사람이 읽을 수 있는 설명입니다
	Description string
}

// Found는 충돌이 발견되었는지 확인합니다
func (c MACConflict) Found() bool {
	return c.Description != ""
}

// 게으른 기본값 생성과 검증을 위해 디바이스가 참조하는 협력자 인터페이스들.
// 구현체는 호스트 데몬에 블로킹 질의를 수행할 수 있습니다.

// MACGenerator는 충돌하지 않는 MAC 주소를 생성합니다
type MACGenerator interface {
	GenerateMAC(ctx context.Context) (string, error)
}

// ConflictChecker는 후보 MAC 주소의 충돌 여부를 검사합니다
type ConflictChecker interface {
	CheckConflict(ctx context.Context, mac string) (MACConflict, error)
}

// BridgeResolver는 호스트의 기본 브리지 디바이스를 조회합니다
type BridgeResolver interface {
	DefaultBridge(ctx context.Context) (string, error)
}

// NetworkChecker는 가상 네트워크 이름의 존재와 활성 여부를 검사합니다
type NetworkChecker interface {
	CheckNetwork(ctx context.Context, name string) error
}

// Collaborators는 디바이스가 사용하는 협력자 묶음입니다.
// 필드가 nil이면 해당 기본값 생성/검증은 생략됩니다 (연결 없는 구성).
type Collaborators struct {
	MACGenerator    MACGenerator
	ConflictChecker ConflictChecker
	BridgeResolver  BridgeResolver
	NetworkChecker  NetworkChecker
}

// DeviceConfig는 신규 디바이스 생성 시의 선택적 초기 값입니다
type DeviceConfig struct {
	MACAddress string
	Bridge     string
	Network    string
	Model      string
}

// NetworkInterfaceDevice는 가상 머신 네트워크 인터페이스의 XML 기반 모델입니다.
// 동일 객체에 대한 동시 접근은 호출자가 직렬화해야 합니다.
type NetworkInterfaceDevice struct {
	kind       InterfaceKind
	macAddr    string
	network    string
	bridge     string
	sourceDev  string
	sourceMode string
	model      string
	targetDev  string

	// VirtualPort는 802.1Qbg/802.1Qbh 포트 프로파일 메타데이터입니다
	VirtualPort VirtualPort

	// parsed는 기존 XML 조각에서 파싱되어 생성되었는지 나타냅니다.
	// true이면 MAC/브리지의 게으른 기본값 생성이 억제됩니다.
	parsed bool

	// 게으른 기본값 캐시. computed 플래그로 "아직 계산 전"과
	// "계산했지만 없음"을 구분합니다.
	generatedMAC   string
	macComputed    bool
	defaultBridge  string
	bridgeComputed bool

	collab Collaborators
}

// NewInterfaceDevice는 새로운 NetworkInterfaceDevice를 생성합니다.
// kind가 닫힌 enum에 속하지 않거나, kind=network인데 네트워크 이름이
// 없으면 유효성 검증 에러를 반환합니다.
func NewInterfaceDevice(ctx context.Context, kind InterfaceKind, cfg DeviceConfig, collab Collaborators) (*NetworkInterfaceDevice, error) {
	d := &NetworkInterfaceDevice{
		sourceMode: DefaultSourceMode,
		collab:     collab,
	}

	if err := d.SetKind(kind); err != nil {
		return nil, err
	}

	if cfg.MACAddress != "" {
		if err := d.SetMACAddress(cfg.MACAddress); err != nil {
			return nil, err
		}
	}

	// bridge 인자는 bridge 이름과 물리 디바이스 이름 양쪽에 반영됩니다
	d.bridge = cfg.Bridge
	d.sourceDev = cfg.Bridge

	if cfg.Network != "" {
		if err := d.SetNetwork(ctx, cfg.Network); err != nil {
			return nil, err
		}
	}

	d.model = cfg.Model

	if d.kind == KindNetwork && d.network == "" {
		return nil, errors.NewValidationError("a network name was not provided", nil)
	}

	return d, nil
}

// Kind는 인터페이스의 종류를 반환합니다
func (d *NetworkInterfaceDevice) Kind() InterfaceKind {
	return d.kind
}

// SetKind는 인터페이스 종류를 설정합니다. 종류 변경 시 이전 종류에서
// 설정된 source 필드는 그대로 유지됩니다.
func (d *NetworkInterfaceDevice) SetKind(kind InterfaceKind) error {
	if !kind.Valid() {
		return errors.NewValidationError(
			fmt.Sprintf("unknown network interface type %q", string(kind)), nil)
	}
	d.kind = kind
	return nil
}

// IsParsed는 기존 XML에서 파싱되어 생성되었는지 반환합니다
func (d *NetworkInterfaceDevice) IsParsed() bool {
	return d.parsed
}

// MACAddress는 MAC 주소를 반환합니다. 명시적으로 설정되지 않았고 파싱
// 모드가 아니면 최초 읽기 시점에 한 번만 생성하여 캐시합니다. 생성에
// 실패한 경우("주소 할당 불가") 빈 문자열이 캐시되어 재시도하지 않습니다.
func (d *NetworkInterfaceDevice) MACAddress(ctx context.Context) (string, error) {
	if d.macAddr != "" || d.parsed {
		return d.macAddr, nil
	}
	if !d.macComputed {
		if d.collab.MACGenerator == nil {
			return "", nil
		}
		mac, err := d.collab.MACGenerator.GenerateMAC(ctx)
		if err != nil {
			return "", err
		}
		d.generatedMAC = mac
		d.macComputed = true
	}
	return d.generatedMAC, nil
}

// SetMACAddress는 MAC 주소를 설정합니다. 형식이 잘못되면 유효성 검증
// 에러를 반환합니다.
func (d *NetworkInterfaceDevice) SetMACAddress(mac string) error {
	if err := ValidateMACAddress(mac); err != nil {
		return err
	}
	d.macAddr = mac
	return nil
}

// Network는 가상 네트워크 이름을 반환합니다
func (d *NetworkInterfaceDevice) Network() string {
	return d.network
}

// SetNetwork는 가상 네트워크 이름을 설정합니다. NetworkChecker 협력자가
// 있으면 존재하지 않거나 시작되지 않은 네트워크를 거부합니다.
func (d *NetworkInterfaceDevice) SetNetwork(ctx context.Context, name string) error {
	if name != "" && d.collab.NetworkChecker != nil {
		if err := d.collab.NetworkChecker.CheckNetwork(ctx, name); err != nil {
			return err
		}
	}
	d.network = name
	return nil
}

// Bridge는 브리지 디바이스 이름을 반환합니다. 설정되지 않았고 파싱 모드가
// 아니며 kind=bridge이면 호스트의 기본 브리지를 한 번만 조회하여
// 캐시합니다. "기본값 없음" 결과도 캐시되어 중복 질의를 막습니다.
func (d *NetworkInterfaceDevice) Bridge(ctx context.Context) (string, error) {
	if d.parsed || d.bridge != "" || d.kind != KindBridge {
		return d.bridge, nil
	}
	if !d.bridgeComputed {
		if d.collab.BridgeResolver == nil {
			d.bridgeComputed = true
			return "", nil
		}
		name, err := d.collab.BridgeResolver.DefaultBridge(ctx)
		if err != nil {
			return "", err
		}
		d.defaultBridge = name
		d.bridgeComputed = true
	}
	return d.defaultBridge, nil
}

// SetBridge는 브리지 디바이스 이름을 설정합니다
func (d *NetworkInterfaceDevice) SetBridge(name string) {
	d.bridge = name
}

// SourceDevice는 물리 디바이스 이름을 반환합니다 (ethernet/direct)
func (d *NetworkInterfaceDevice) SourceDevice() string {
	return d.sourceDev
}

// SetSourceDevice는 물리 디바이스 이름을 설정합니다
func (d *NetworkInterfaceDevice) SetSourceDevice(name string) {
	d.sourceDev = name
}

// SourceMode는 direct 인터페이스의 source mode를 반환합니다
func (d *NetworkInterfaceDevice) SourceMode() string {
	return d.sourceMode
}

// SetSourceMode는 direct 인터페이스의 source mode를 설정합니다
func (d *NetworkInterfaceDevice) SetSourceMode(mode string) {
	d.sourceMode = mode
}

// Model은 NIC 모델 식별자를 반환합니다
func (d *NetworkInterfaceDevice) Model() string {
	return d.model
}

// SetModel은 NIC 모델 식별자를 설정합니다
func (d *NetworkInterfaceDevice) SetModel(model string) {
	d.model = model
}

// TargetDevice는 호스트 측 타깃 디바이스 이름을 반환합니다
func (d *NetworkInterfaceDevice) TargetDevice() string {
	return d.targetDev
}

// SetTargetDevice는 호스트 측 타깃 디바이스 이름을 설정합니다
func (d *NetworkInterfaceDevice) SetTargetDevice(name string) {
	d.targetDev = name
}

// Source는 현재 kind에 맞는 <source> 값을 반환하는 편의 접근자입니다
func (d *NetworkInterfaceDevice) Source(ctx context.Context) (string, error) {
	switch d.kind {
	case KindNetwork:
		return d.network, nil
	case KindBridge:
		return d.Bridge(ctx)
	case KindEthernet, KindDirect:
		return d.sourceDev, nil
	case KindUser:
		return "", nil
	}
	// 과도기 상태를 위한 관대한 폴백: 비어 있지 않은 첫 값을 반환
	if d.network != "" {
		return d.network, nil
	}
	if d.bridge != "" {
		return d.bridge, nil
	}
	return d.sourceDev, nil
}

// SetSource는 현재 kind에 맞는 <source> 값을 설정하는 편의 접근자입니다.
// kind=user이면 아무 동작도 하지 않습니다.
func (d *NetworkInterfaceDevice) SetSource(ctx context.Context, value string) error {
	switch d.kind {
	case KindNetwork:
		return d.SetNetwork(ctx, value)
	case KindBridge:
		d.bridge = value
	case KindEthernet, KindDirect:
		d.sourceDev = value
	}
	return nil
}

// Setup은 호스트 적용 직전의 사전 검증을 수행합니다. MAC 주소가 있으면
// 현재 정의된 게스트들과의 충돌을 다시 검사합니다. 실행 중인 게스트와의
// 충돌은 치명적 에러이고, 비활성 게스트와의 충돌은 경고 메시지로
// 반환되어 호출자가 로깅 후 진행할 수 있습니다.
func (d *NetworkInterfaceDevice) Setup(ctx context.Context) (string, error) {
	mac, err := d.MACAddress(ctx)
	if err != nil {
		return "", err
	}
	if mac == "" || d.collab.ConflictChecker == nil {
		return "", nil
	}

	conflict, err := d.collab.ConflictChecker.CheckConflict(ctx, mac)
	if err != nil {
		return "", err
	}
	if !conflict.Found() {
		return "", nil
	}
	if conflict.Fatal {
		return "", errors.NewConflictError(conflict.Description)
	}
	return conflict.Description, nil
}

// Render는 인터페이스의 XML 조각을 생성합니다. 필드 값 외의 호스트 질의는
// 수행하지 않지만, MAC 주소가 아직 없으면 게으른 생성이 먼저 일어납니다.
func (d *NetworkInterfaceDevice) Render(ctx context.Context) (string, error) {
	mac, err := d.MACAddress(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<interface type='%s'>\n", string(d.kind))

	switch d.kind {
	case KindBridge:
		bridge, err := d.Bridge(ctx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  <source bridge='%s'/>\n", bridge)
	case KindNetwork:
		fmt.Fprintf(&b, "  <source network='%s'/>\n", d.network)
	case KindEthernet:
		if d.sourceDev != "" {
			fmt.Fprintf(&b, "  <source dev='%s'/>\n", d.sourceDev)
		}
	case KindDirect:
		if d.sourceDev != "" {
			fmt.Fprintf(&b, "  <source dev='%s' mode='%s'/>\n", d.sourceDev, d.sourceMode)
		}
	}

	fmt.Fprintf(&b, "  <mac address='%s'/>\n", mac)

	if d.targetDev != "" {
		fmt.Fprintf(&b, "  <target dev='%s'/>\n", d.targetDev)
	}
	if d.model != "" {
		fmt.Fprintf(&b, "  <model type='%s'/>\n", d.model)
	}
	if d.VirtualPort.IsSet() {
		b.WriteString(d.VirtualPort.render("  "))
	}

	b.WriteString("</interface>")
	return b.String(), nil
}
