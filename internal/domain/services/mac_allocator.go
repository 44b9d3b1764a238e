package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"virtnic-agent/internal/domain/entities"
	"virtnic-agent/internal/domain/errors"
	"virtnic-agent/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	// maxGenerateAttempts는 충돌 없는 주소를 찾기 위한 최대 시도 횟수입니다
	maxGenerateAttempts = 256

	// predictableTestMAC은 예측 가능한 테스트 연결에서 반환되는 고정 주소입니다
	predictableTestMAC = "00:11:22:33:44:55"

	// fallbackDriver는 알 수 없는 드라이버 종류에 사용할 프리픽스 키입니다
	fallbackDriver = "xen"
)

// OUIPrefix는 하드웨어 주소의 첫 3옥텟(organizationally unique
// identifier)입니다
type OUIPrefix [3]byte

// String은 프리픽스를 소문자 콜론 16진수로 표현합니다
func (p OUIPrefix) String() string {
	return fmt.Sprintf("%02x:%02x:%02x", p[0], p[1], p[2])
}

// ParseOUIPrefix는 "52:54:00" 형태의 문자열을 프리픽스로 변환합니다
func ParseOUIPrefix(s string) (OUIPrefix, error) {
	var p OUIPrefix
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return p, errors.NewValidationError(
			fmt.Sprintf("invalid OUI prefix %q: expected 3 colon-separated octets", s), nil)
	}
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return p, errors.NewValidationError(
				fmt.Sprintf("invalid OUI prefix %q", s), err)
		}
		p[i] = byte(v)
	}
	return p, nil
}

// DefaultOUIPrefixes는 내장 드라이버별 프리픽스 테이블을 반환합니다.
// 00:16:3e는 Xen에, 52:54:00은 QEMU/KVM에 할당된 대역입니다.
func DefaultOUIPrefixes() map[string]string {
	return map[string]string{
		"xen":  "00:16:3e",
		"qemu": "52:54:00",
	}
}

// MACAllocator는 호스트에서 사용 중인 주소와 충돌하지 않는 하드웨어
// 주소를 생성하는 도메인 서비스입니다
type MACAllocator struct {
	host     interfaces.HostConnection
	random   interfaces.RandomSource
	prefixes map[string]OUIPrefix
	logger   *logrus.Logger
}

// NewMACAllocator는 새로운 MACAllocator를 생성합니다
func NewMACAllocator(
	host interfaces.HostConnection,
	random interfaces.RandomSource,
	prefixes map[string]OUIPrefix,
	logger *logrus.Logger,
) *MACAllocator {
	return &MACAllocator{
		host:     host,
		random:   random,
		prefixes: prefixes,
		logger:   logger,
	}
}

// GenerateMAC은 현재 정의된 어떤 게스트와도 충돌하지 않는 MAC 주소를
// 생성합니다. 최대 시도 횟수 안에 찾지 못하면 빈 문자열을 반환하며,
// 이는 에러가 아니라 "주소 할당 불가"를 의미합니다. 호스트 질의 실패는
// 에러로 전파됩니다.
func (a *MACAllocator) GenerateMAC(ctx context.Context) (string, error) {
	if pc, ok := a.host.(interfaces.PredictableConnection); ok && pc.PredictableMACs() {
		return predictableTestMAC, nil
	}

	driver, err := a.host.DriverType(ctx)
	if err != nil {
		return "", err
	}
	prefix := a.prefixFor(driver)

	for i := 0; i < maxGenerateAttempts; i++ {
		mac, err := a.synthesize(prefix)
		if err != nil {
			return "", err
		}

		conflict, err := a.CheckConflict(ctx, mac)
		if err != nil {
			return "", err
		}
		if !conflict.Found() {
			return mac, nil
		}
	}

	a.logger.WithFields(logrus.Fields{
		"driver":   driver,
		"prefix":   prefix.String(),
		"attempts": maxGenerateAttempts,
	}).Warn("failed to generate a non-conflicting MAC address")
	return "", nil
}

// CheckConflict는 후보 주소를 현재 정의된 모든 게스트의 인터페이스와
// 대소문자 구분 없이 비교합니다. 실행 중인 게스트와의 일치는 치명적
// 충돌이고, 비활성 게스트와의 일치는 비치명적 충돌입니다. 빈 후보
// 주소는 충돌 없음으로 간주됩니다.
func (a *MACAllocator) CheckConflict(ctx context.Context, mac string) (entities.MACConflict, error) {
	if mac == "" {
		return entities.MACConflict{}, nil
	}

	guests, err := a.host.ListGuests(ctx)
	if err != nil {
		return entities.MACConflict{}, err
	}

	var inactive entities.MACConflict
	for _, guest := range guests {
		for _, dev := range guest.Interfaces {
			existing, err := dev.MACAddress(ctx)
			if err != nil {
				return entities.MACConflict{}, err
			}
			if existing == "" || !strings.EqualFold(existing, mac) {
				continue
			}

			desc := fmt.Sprintf(
				"the MAC address '%s' is in use by virtual machine '%s'", mac, guest.Name)
			if guest.Running {
				return entities.MACConflict{Fatal: true, Description: desc}, nil
			}
			if !inactive.Found() {
				inactive = entities.MACConflict{Fatal: false, Description: desc}
			}
		}
	}

	return inactive, nil
}

// synthesize는 프리픽스에 3개의 난수 옥텟을 붙여 주소를 합성합니다
func (a *MACAllocator) synthesize(prefix OUIPrefix) (string, error) {
	b, err := a.random.Bytes(3)
	if err != nil {
		return "", errors.NewSystemError("failed to read random bytes for MAC synthesis", err)
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		prefix[0], prefix[1], prefix[2], b[0], b[1], b[2]), nil
}

// prefixFor는 드라이버 종류에 맞는 프리픽스를 반환합니다. 알 수 없는
// 드라이버는 Xen 대역으로 폴백합니다.
func (a *MACAllocator) prefixFor(driver string) OUIPrefix {
	if p, ok := a.prefixes[strings.ToLower(driver)]; ok {
		return p
	}
	if p, ok := a.prefixes[fallbackDriver]; ok {
		return p
	}
	return OUIPrefix{0x00, 0x16, 0x3e}
}
