package entities

import (
	"encoding/xml"

	"virtnic-agent/internal/domain/errors"
)

// 인터페이스 XML 조각의 바인딩 스키마. 필드와 문서 위치의 매핑은
// encoding/xml 구조체 태그로 선언됩니다.

// InterfaceXML은 <interface> 요소의 바인딩 구조체입니다
type InterfaceXML struct {
	XMLName     xml.Name        `xml:"interface"`
	Type        string          `xml:"type,attr"`
	Source      *SourceXML      `xml:"source"`
	MAC         *MACXML         `xml:"mac"`
	Target      *TargetXML      `xml:"target"`
	Model       *ModelXML       `xml:"model"`
	VirtualPort *VirtualPortXML `xml:"virtualport"`
}

// SourceXML은 <source> 요소의 바인딩 구조체입니다. kind에 따라 어느
// 속성이 채워지는지 달라집니다.
type SourceXML struct {
	Bridge  string `xml:"bridge,attr,omitempty"`
	Network string `xml:"network,attr,omitempty"`
	Dev     string `xml:"dev,attr,omitempty"`
	Mode    string `xml:"mode,attr,omitempty"`
}

// MACXML은 <mac> 요소의 바인딩 구조체입니다
type MACXML struct {
	Address string `xml:"address,attr"`
}

// TargetXML은 <target> 요소의 바인딩 구조체입니다
type TargetXML struct {
	Dev string `xml:"dev,attr"`
}

// ModelXML은 <model> 요소의 바인딩 구조체입니다
type ModelXML struct {
	Type string `xml:"type,attr"`
}

// VirtualPortXML은 <virtualport> 요소의 바인딩 구조체입니다
type VirtualPortXML struct {
	Type       string         `xml:"type,attr,omitempty"`
	Parameters *ParametersXML `xml:"parameters"`
}

// ParametersXML은 <virtualport>의 <parameters> 요소입니다. 정수 속성은
// 파싱 시 타입 강제 변환됩니다.
type ParametersXML struct {
	ManagerID     *int   `xml:"managerid,attr"`
	TypeID        *int   `xml:"typeid,attr"`
	TypeIDVersion *int   `xml:"typeidversion,attr"`
	InstanceID    string `xml:"instanceid,attr,omitempty"`
}

// ParseInterfaceDevice는 기존 XML 조각을 파싱하여 디바이스를 생성합니다.
// 파싱 모드에서는 타입 강제 변환 외의 검증이나 기본값 생성이 일어나지
// 않으므로, 다수의 기존 디바이스를 일괄 파싱해도 호스트 질의가 없습니다.
func ParseInterfaceDevice(data []byte) (*NetworkInterfaceDevice, error) {
	var x InterfaceXML
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, errors.NewValidationError("failed to parse interface XML fragment", err)
	}
	return DeviceFromXML(x), nil
}

// DeviceFromXML은 언마샬된 바인딩 구조체로부터 파싱 모드 디바이스를
// 생성합니다
func DeviceFromXML(x InterfaceXML) *NetworkInterfaceDevice {
	d := &NetworkInterfaceDevice{
		kind:       InterfaceKind(x.Type),
		sourceMode: DefaultSourceMode,
		parsed:     true,
	}

	if x.Source != nil {
		d.bridge = x.Source.Bridge
		d.network = x.Source.Network
		d.sourceDev = x.Source.Dev
		if x.Source.Mode != "" {
			d.sourceMode = x.Source.Mode
		}
	}
	if x.MAC != nil {
		d.macAddr = x.MAC.Address
	}
	if x.Target != nil {
		d.targetDev = x.Target.Dev
	}
	if x.Model != nil {
		d.model = x.Model.Type
	}
	if x.VirtualPort != nil {
		d.VirtualPort.PortType = x.VirtualPort.Type
		if p := x.VirtualPort.Parameters; p != nil {
			d.VirtualPort.ManagerID = p.ManagerID
			d.VirtualPort.TypeID = p.TypeID
			d.VirtualPort.TypeIDVersion = p.TypeIDVersion
			d.VirtualPort.InstanceID = p.InstanceID
		}
	}

	return d
}
