package libvirt

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"

	"virtnic-agent/internal/domain/entities"
	domainerrors "virtnic-agent/internal/domain/errors"
	"virtnic-agent/internal/infrastructure/config"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	"github.com/sirupsen/logrus"
)

// defaultNetworkName은 libvirt가 기본 브리지를 제공하는 네트워크입니다
const defaultNetworkName = "default"

// domainXML은 게스트 도메인 문서에서 인터페이스 디바이스만 뽑아내는
// 바인딩 구조체입니다
type domainXML struct {
	Name       string                  `xml:"name"`
	Interfaces []entities.InterfaceXML `xml:"devices>interface"`
}

// HostAdapter는 go-libvirt 기반의 HostConnection 구현체입니다
type HostAdapter struct {
	conn   *libvirt.Libvirt
	logger *logrus.Logger
}

// NewHostAdapter는 libvirt 소켓에 연결된 새로운 HostAdapter를 생성합니다
func NewHostAdapter(cfg config.LibvirtConfig, logger *logrus.Logger) (*HostAdapter, error) {
	c, err := net.DialTimeout("unix", cfg.Socket, cfg.DialTimeout)
	if err != nil {
		return nil, domainerrors.NewSystemError(
			fmt.Sprintf("failed to dial libvirt socket %s", cfg.Socket), err)
	}

	conn := libvirt.NewWithDialer(dialers.NewAlreadyConnected(c))
	if err := conn.Connect(); err != nil {
		return nil, domainerrors.NewSystemError("failed to connect to libvirt", err)
	}

	return &HostAdapter{conn: conn, logger: logger}, nil
}

// DriverType은 하이퍼바이저 드라이버 종류를 반환합니다
func (a *HostAdapter) DriverType(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	driver, err := a.conn.ConnectGetType()
	if err != nil {
		return "", domainerrors.NewNetworkError("failed to query hypervisor driver type", err)
	}
	return driver, nil
}

// ListGuests는 정의된 모든 게스트와 그 인터페이스들을 조회합니다.
// 인터페이스 디바이스는 도메인 XML에서 파싱 모드로 생성되므로 게으른
// 기본값 생성이 일어나지 않습니다.
func (a *HostAdapter) ListGuests(ctx context.Context) ([]entities.Guest, error) {
	flags := libvirt.ConnectListDomainsActive | libvirt.ConnectListDomainsInactive
	domains, _, err := a.conn.ConnectListAllDomains(1, flags)
	if err != nil {
		return nil, domainerrors.NewNetworkError("failed to list defined guests", err)
	}

	guests := make([]entities.Guest, 0, len(domains))
	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		desc, err := a.conn.DomainGetXMLDesc(d, 0)
		if err != nil {
			// 질의 도중 사라진 게스트는 건너뜁니다
			a.logger.WithError(err).WithField("guest", d.Name).
				Debug("failed to fetch guest XML, skipping")
			continue
		}

		var doc domainXML
		if err := xml.Unmarshal([]byte(desc), &doc); err != nil {
			return nil, domainerrors.NewSystemError(
				fmt.Sprintf("failed to parse XML of guest %s", d.Name), err)
		}

		running, err := a.conn.DomainIsActive(d)
		if err != nil {
			return nil, domainerrors.NewNetworkError(
				fmt.Sprintf("failed to query state of guest %s", d.Name), err)
		}

		guest := entities.Guest{
			Name:    d.Name,
			Running: running == 1,
		}
		for _, ifaceXML := range doc.Interfaces {
			guest.Interfaces = append(guest.Interfaces, entities.DeviceFromXML(ifaceXML))
		}
		guests = append(guests, guest)
	}

	return guests, nil
}

// LookupNetwork는 이름으로 가상 네트워크를 조회합니다
func (a *HostAdapter) LookupNetwork(ctx context.Context, name string) (entities.VirtualNetwork, error) {
	if err := ctx.Err(); err != nil {
		return entities.VirtualNetwork{}, err
	}

	network, err := a.conn.NetworkLookupByName(name)
	if err != nil {
		return entities.VirtualNetwork{}, domainerrors.NewNotFoundError(
			fmt.Sprintf("virtual network '%s' not found: %v", name, err))
	}

	active, err := a.conn.NetworkIsActive(network)
	if err != nil {
		return entities.VirtualNetwork{}, domainerrors.NewNetworkError(
			fmt.Sprintf("failed to query state of network %s", name), err)
	}

	return entities.VirtualNetwork{Name: name, Active: active == 1}, nil
}

// ListActiveNetworks는 활성 가상 네트워크의 이름 목록을 반환합니다
func (a *HostAdapter) ListActiveNetworks(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	networks, _, err := a.conn.ConnectListAllNetworks(1, libvirt.ConnectListNetworksActive)
	if err != nil {
		return nil, domainerrors.NewNetworkError("failed to list active networks", err)
	}

	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, n.Name)
	}
	return names, nil
}

// DefaultBridge는 기본 네트워크의 브리지 디바이스 이름을 반환합니다.
// 기본 네트워크가 없으면 빈 문자열을 반환합니다.
func (a *HostAdapter) DefaultBridge(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	network, err := a.conn.NetworkLookupByName(defaultNetworkName)
	if err != nil {
		a.logger.WithError(err).Debug("host has no default network")
		return "", nil
	}

	bridge, err := a.conn.NetworkGetBridgeName(network)
	if err != nil {
		a.logger.WithError(err).Debug("default network has no bridge device")
		return "", nil
	}
	return bridge, nil
}

// Close는 libvirt 연결을 종료합니다
func (a *HostAdapter) Close() error {
	return a.conn.Disconnect()
}
