package entities

import (
	"fmt"
	"strings"
)

// VirtualPort는 인터페이스에 연결되는 802.1Qbg/802.1Qbh 스타일의 스위치
// 포트 프로파일입니다. 모든 필드는 선택적이며 독립적으로 설정됩니다.
type VirtualPort struct {
	PortType      string
	ManagerID     *int
	TypeID        *int
	TypeIDVersion *int
	InstanceID    string
}

// IsSet은 하나 이상의 필드가 설정되었는지 확인합니다
func (p *VirtualPort) IsSet() bool {
	return p.PortType != "" || p.ManagerID != nil || p.TypeID != nil ||
		p.TypeIDVersion != nil || p.InstanceID != ""
}

// hasParameters는 <parameters> 하위 요소가 필요한지 확인합니다
func (p *VirtualPort) hasParameters() bool {
	return p.ManagerID != nil || p.TypeID != nil || p.TypeIDVersion != nil ||
		p.InstanceID != ""
}

// render는 <virtualport> XML 조각을 생성합니다
func (p *VirtualPort) render(indent string) string {
	var b strings.Builder

	b.WriteString(indent + "<virtualport")
	if p.PortType != "" {
		fmt.Fprintf(&b, " type='%s'", p.PortType)
	}
	if !p.hasParameters() {
		b.WriteString("/>\n")
		return b.String()
	}
	b.WriteString(">\n")

	b.WriteString(indent + "  <parameters")
	if p.ManagerID != nil {
		fmt.Fprintf(&b, " managerid='%d'", *p.ManagerID)
	}
	if p.TypeID != nil {
		fmt.Fprintf(&b, " typeid='%d'", *p.TypeID)
	}
	if p.TypeIDVersion != nil {
		fmt.Fprintf(&b, " typeidversion='%d'", *p.TypeIDVersion)
	}
	if p.InstanceID != "" {
		fmt.Fprintf(&b, " instanceid='%s'", p.InstanceID)
	}
	b.WriteString("/>\n")

	b.WriteString(indent + "</virtualport>\n")
	return b.String()
}
