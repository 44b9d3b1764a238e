package entities

import (
	"context"
	"strings"
	"testing"

	"virtnic-agent/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 테스트용 협력자 스텁들

type stubMACGenerator struct {
	mac   string
	err   error
	calls int
}

func (s *stubMACGenerator) GenerateMAC(ctx context.Context) (string, error) {
	s.calls++
	return s.mac, s.err
}

type stubConflictChecker struct {
	conflict MACConflict
	err      error
	lastMAC  string
	calls    int
}

func (s *stubConflictChecker) CheckConflict(ctx context.Context, mac string) (MACConflict, error) {
	s.calls++
	s.lastMAC = mac
	return s.conflict, s.err
}

type stubBridgeResolver struct {
	bridge string
	err    error
	calls  int
}

func (s *stubBridgeResolver) DefaultBridge(ctx context.Context) (string, error) {
	s.calls++
	return s.bridge, s.err
}

type stubNetworkChecker struct {
	err   error
	calls int
}

func (s *stubNetworkChecker) CheckNetwork(ctx context.Context, name string) error {
	s.calls++
	return s.err
}

func TestNewInterfaceDevice_KindValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("network 외의 모든 종류는 네트워크 이름 없이 생성 가능", func(t *testing.T) {
		for _, kind := range []InterfaceKind{KindBridge, KindUser, KindEthernet, KindDirect} {
			d, err := NewInterfaceDevice(ctx, kind, DeviceConfig{}, Collaborators{})
			require.NoError(t, err, "kind=%s", kind)
			assert.Equal(t, kind, d.Kind())
		}
	})

	t.Run("kind=network는 네트워크 이름이 없으면 실패", func(t *testing.T) {
		_, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{}, Collaborators{})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("kind=network는 네트워크 이름이 있으면 성공", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{Network: "default"}, Collaborators{})
		require.NoError(t, err)
		assert.Equal(t, "default", d.Network())
	})

	t.Run("알 수 없는 종류는 실패", func(t *testing.T) {
		_, err := NewInterfaceDevice(ctx, InterfaceKind("vhostuser"), DeviceConfig{}, Collaborators{})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestValidateMACAddress(t *testing.T) {
	tests := []struct {
		name      string
		mac       string
		wantError bool
	}{
		{"소문자 콜론 형식", "52:54:00:ab:cd:ef", false},
		{"대문자 콜론 형식", "52:54:00:AB:CD:EF", false},
		{"혼합 대소문자", "52:54:00:Ab:cD:ef", false},
		{"5옥텟", "52:54:00:ab:cd", true},
		{"7옥텟", "52:54:00:ab:cd:ef:01", true},
		{"콜론 없음", "525400abcdef", true},
		{"하이픈 구분자", "52-54-00-ab-cd-ef", true},
		{"16진수가 아닌 문자", "52:54:00:ab:cd:zz", true},
		{"빈 문자열", "", true},
		{"옥텟 자리수 부족", "5:54:00:ab:cd:ef", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMACAddress(tt.mac)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNetworkInterfaceDevice_SetMACAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("유효한 주소는 저장", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{}, Collaborators{})
		require.NoError(t, err)

		require.NoError(t, d.SetMACAddress("52:54:00:ab:cd:ef"))
		mac, err := d.MACAddress(ctx)
		require.NoError(t, err)
		assert.Equal(t, "52:54:00:ab:cd:ef", mac)
	})

	t.Run("잘못된 형식은 거부되고 기존 값 유지", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindBridge,
			DeviceConfig{MACAddress: "52:54:00:ab:cd:ef"}, Collaborators{})
		require.NoError(t, err)

		err = d.SetMACAddress("not-a-mac")
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))

		mac, err := d.MACAddress(ctx)
		require.NoError(t, err)
		assert.Equal(t, "52:54:00:ab:cd:ef", mac)
	})
}

func TestNetworkInterfaceDevice_LazyMACGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("최초 읽기에서 한 번만 생성", func(t *testing.T) {
		gen := &stubMACGenerator{mac: "52:54:00:11:22:33"}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{},
			Collaborators{MACGenerator: gen})
		require.NoError(t, err)

		first, err := d.MACAddress(ctx)
		require.NoError(t, err)
		second, err := d.MACAddress(ctx)
		require.NoError(t, err)

		assert.Equal(t, "52:54:00:11:22:33", first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("생성 실패(주소 없음)도 캐시되어 재시도하지 않음", func(t *testing.T) {
		gen := &stubMACGenerator{mac: ""}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{},
			Collaborators{MACGenerator: gen})
		require.NoError(t, err)

		mac, err := d.MACAddress(ctx)
		require.NoError(t, err)
		assert.Empty(t, mac)

		_, err = d.MACAddress(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("명시적으로 설정된 주소가 있으면 생성하지 않음", func(t *testing.T) {
		gen := &stubMACGenerator{mac: "52:54:00:11:22:33"}
		d, err := NewInterfaceDevice(ctx, KindBridge,
			DeviceConfig{MACAddress: "52:54:00:ab:cd:ef"},
			Collaborators{MACGenerator: gen})
		require.NoError(t, err)

		mac, err := d.MACAddress(ctx)
		require.NoError(t, err)
		assert.Equal(t, "52:54:00:ab:cd:ef", mac)
		assert.Zero(t, gen.calls)
	})
}

func TestNetworkInterfaceDevice_LazyBridgeDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("kind=bridge이면 기본 브리지를 한 번만 조회", func(t *testing.T) {
		resolver := &stubBridgeResolver{bridge: "virbr0"}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{},
			Collaborators{BridgeResolver: resolver})
		require.NoError(t, err)

		bridge, err := d.Bridge(ctx)
		require.NoError(t, err)
		assert.Equal(t, "virbr0", bridge)

		_, err = d.Bridge(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("기본 브리지 없음도 캐시되어 중복 질의하지 않음", func(t *testing.T) {
		resolver := &stubBridgeResolver{bridge: ""}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{},
			Collaborators{BridgeResolver: resolver})
		require.NoError(t, err)

		bridge, err := d.Bridge(ctx)
		require.NoError(t, err)
		assert.Empty(t, bridge)

		_, err = d.Bridge(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("명시적 브리지가 있으면 조회하지 않음", func(t *testing.T) {
		resolver := &stubBridgeResolver{bridge: "virbr0"}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{Bridge: "br0"},
			Collaborators{BridgeResolver: resolver})
		require.NoError(t, err)

		bridge, err := d.Bridge(ctx)
		require.NoError(t, err)
		assert.Equal(t, "br0", bridge)
		assert.Zero(t, resolver.calls)
	})

	t.Run("kind=bridge가 아니면 조회하지 않음", func(t *testing.T) {
		resolver := &stubBridgeResolver{bridge: "virbr0"}
		d, err := NewInterfaceDevice(ctx, KindUser, DeviceConfig{},
			Collaborators{BridgeResolver: resolver})
		require.NoError(t, err)

		bridge, err := d.Bridge(ctx)
		require.NoError(t, err)
		assert.Empty(t, bridge)
		assert.Zero(t, resolver.calls)
	})
}

func TestNetworkInterfaceDevice_SetNetwork(t *testing.T) {
	ctx := context.Background()

	t.Run("검증 서비스가 거부하면 설정 에러", func(t *testing.T) {
		checker := &stubNetworkChecker{
			err: errors.NewValidationError("virtual network 'missing' does not exist", nil),
		}
		_, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{Network: "missing"},
			Collaborators{NetworkChecker: checker})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.Equal(t, 1, checker.calls)
	})

	t.Run("검증 서비스가 없으면 그대로 설정", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{Network: "default"}, Collaborators{})
		require.NoError(t, err)
		assert.Equal(t, "default", d.Network())
	})
}

func TestNetworkInterfaceDevice_SourceAccessor(t *testing.T) {
	ctx := context.Background()

	t.Run("kind=network는 네트워크 이름과 일치", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{Network: "default"}, Collaborators{})
		require.NoError(t, err)

		require.NoError(t, d.SetSource(ctx, "other-net"))
		assert.Equal(t, "other-net", d.Network())

		require.NoError(t, d.SetNetwork(ctx, "third-net"))
		source, err := d.Source(ctx)
		require.NoError(t, err)
		assert.Equal(t, "third-net", source)
	})

	t.Run("kind=bridge는 브리지 이름과 일치", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{}, Collaborators{})
		require.NoError(t, err)

		require.NoError(t, d.SetSource(ctx, "br0"))
		source, err := d.Source(ctx)
		require.NoError(t, err)
		assert.Equal(t, "br0", source)
	})

	t.Run("kind=ethernet/direct는 물리 디바이스와 일치", func(t *testing.T) {
		for _, kind := range []InterfaceKind{KindEthernet, KindDirect} {
			d, err := NewInterfaceDevice(ctx, kind, DeviceConfig{}, Collaborators{})
			require.NoError(t, err)

			require.NoError(t, d.SetSource(ctx, "eth1"))
			assert.Equal(t, "eth1", d.SourceDevice())

			source, err := d.Source(ctx)
			require.NoError(t, err)
			assert.Equal(t, "eth1", source)
		}
	})

	t.Run("kind=user는 읽기 빈 값, 쓰기 무시", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindUser, DeviceConfig{}, Collaborators{})
		require.NoError(t, err)

		require.NoError(t, d.SetSource(ctx, "ignored"))
		source, err := d.Source(ctx)
		require.NoError(t, err)
		assert.Empty(t, source)
		assert.Empty(t, d.Network())
		assert.Empty(t, d.SourceDevice())
	})

	t.Run("종류 변경 후에도 이전 source 필드는 유지", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{Network: "default"}, Collaborators{})
		require.NoError(t, err)

		require.NoError(t, d.SetKind(KindBridge))
		d.SetBridge("br0")

		// 이전에 설정된 네트워크 이름은 지워지지 않음
		assert.Equal(t, "default", d.Network())
		source, err := d.Source(ctx)
		require.NoError(t, err)
		assert.Equal(t, "br0", source)
	})
}

func TestNetworkInterfaceDevice_Setup(t *testing.T) {
	ctx := context.Background()

	t.Run("MAC이 없으면 충돌 검사를 생략", func(t *testing.T) {
		checker := &stubConflictChecker{}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{},
			Collaborators{ConflictChecker: checker})
		require.NoError(t, err)

		warning, err := d.Setup(ctx)
		require.NoError(t, err)
		assert.Empty(t, warning)
		assert.Zero(t, checker.calls)
	})

	t.Run("실행 중인 게스트와의 충돌은 치명적 에러", func(t *testing.T) {
		checker := &stubConflictChecker{
			conflict: MACConflict{Fatal: true, Description: "the MAC address '52:54:00:ab:cd:ef' is in use by virtual machine 'vm1'"},
		}
		d, err := NewInterfaceDevice(ctx, KindBridge,
			DeviceConfig{MACAddress: "52:54:00:ab:cd:ef"},
			Collaborators{ConflictChecker: checker})
		require.NoError(t, err)

		_, err = d.Setup(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsConflictError(err))
		assert.Equal(t, "52:54:00:ab:cd:ef", checker.lastMAC)
	})

	t.Run("비활성 게스트와의 충돌은 경고로 반환", func(t *testing.T) {
		checker := &stubConflictChecker{
			conflict: MACConflict{Fatal: false, Description: "the MAC address '52:54:00:ab:cd:ef' is in use by virtual machine 'vm2'"},
		}
		d, err := NewInterfaceDevice(ctx, KindBridge,
			DeviceConfig{MACAddress: "52:54:00:ab:cd:ef"},
			Collaborators{ConflictChecker: checker})
		require.NoError(t, err)

		warning, err := d.Setup(ctx)
		require.NoError(t, err)
		assert.Contains(t, warning, "vm2")
	})

	t.Run("충돌이 없으면 통과", func(t *testing.T) {
		checker := &stubConflictChecker{}
		d, err := NewInterfaceDevice(ctx, KindBridge,
			DeviceConfig{MACAddress: "52:54:00:ab:cd:ef"},
			Collaborators{ConflictChecker: checker})
		require.NoError(t, err)

		warning, err := d.Setup(ctx)
		require.NoError(t, err)
		assert.Empty(t, warning)
	})
}

// stripWhitespace는 요소 사이의 들여쓰기/개행을 제거합니다
func stripWhitespace(xml string) string {
	var b strings.Builder
	for _, line := range strings.Split(xml, "\n") {
		b.WriteString(strings.TrimSpace(line))
	}
	return b.String()
}

func TestNetworkInterfaceDevice_Render(t *testing.T) {
	ctx := context.Background()

	t.Run("bridge 인터페이스 왕복 렌더링", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{
			MACAddress: "52:54:00:ab:cd:ef",
			Bridge:     "br0",
			Model:      "virtio",
		}, Collaborators{})
		require.NoError(t, err)

		xml, err := d.Render(ctx)
		require.NoError(t, err)

		expected := "<interface type='bridge'>" +
			"<source bridge='br0'/>" +
			"<mac address='52:54:00:ab:cd:ef'/>" +
			"<model type='virtio'/>" +
			"</interface>"
		assert.Equal(t, expected, stripWhitespace(xml))
	})

	t.Run("network 인터페이스", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindNetwork, DeviceConfig{
			MACAddress: "52:54:00:ab:cd:ef",
			Network:    "default",
		}, Collaborators{})
		require.NoError(t, err)

		xml, err := d.Render(ctx)
		require.NoError(t, err)
		assert.Contains(t, xml, "<source network='default'/>")
	})

	t.Run("ethernet은 물리 디바이스가 없으면 source 생략", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindEthernet, DeviceConfig{
			MACAddress: "52:54:00:ab:cd:ef",
		}, Collaborators{})
		require.NoError(t, err)

		xml, err := d.Render(ctx)
		require.NoError(t, err)
		assert.NotContains(t, xml, "<source")
	})

	t.Run("direct는 물리 디바이스와 모드를 함께 출력", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindDirect, DeviceConfig{
			MACAddress: "52:54:00:ab:cd:ef",
		}, Collaborators{})
		require.NoError(t, err)
		d.SetSourceDevice("eth0")

		xml, err := d.Render(ctx)
		require.NoError(t, err)
		assert.Contains(t, xml, "<source dev='eth0' mode='vepa'/>")
	})

	t.Run("target 디바이스는 설정 시에만 출력", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{
			MACAddress: "52:54:00:ab:cd:ef",
			Bridge:     "br0",
		}, Collaborators{})
		require.NoError(t, err)
		d.SetTargetDevice("vnet7")

		xml, err := d.Render(ctx)
		require.NoError(t, err)
		assert.Contains(t, xml, "<target dev='vnet7'/>")
	})

	t.Run("렌더링 전에 MAC이 게으르게 생성됨", func(t *testing.T) {
		gen := &stubMACGenerator{mac: "00:16:3e:01:02:03"}
		d, err := NewInterfaceDevice(ctx, KindBridge, DeviceConfig{Bridge: "br0"},
			Collaborators{MACGenerator: gen})
		require.NoError(t, err)

		xml, err := d.Render(ctx)
		require.NoError(t, err)
		assert.Contains(t, xml, "<mac address='00:16:3e:01:02:03'/>")
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("virtualport는 필드가 설정된 경우에만 출력", func(t *testing.T) {
		d, err := NewInterfaceDevice(ctx, KindDirect, DeviceConfig{
			MACAddress: "52:54:00:ab:cd:ef",
		}, Collaborators{})
		require.NoError(t, err)

		xml, err := d.Render(ctx)
		require.NoError(t, err)
		assert.NotContains(t, xml, "<virtualport")

		managerID := 11
		typeID := 1193047
		d.VirtualPort.PortType = "802.1Qbg"
		d.VirtualPort.ManagerID = &managerID
		d.VirtualPort.TypeID = &typeID

		xml, err = d.Render(ctx)
		require.NoError(t, err)
		assert.Contains(t, xml, "<virtualport type='802.1Qbg'>")
		assert.Contains(t, xml, "managerid='11'")
		assert.Contains(t, xml, "typeid='1193047'")
	})
}
