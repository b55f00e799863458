package view

import (
	"fmt"
	"strings"

	"github.com/matzehuels/contractmap/pkg/graph"
)

// Details panel texts.
const (
	SummaryLoading = "하위 업체 정보 로딩 중..."
	SummaryError   = "정보 로드 중 오류 발생."

	LabelContractorChildren = "재위탁 통보 업체"
	LabelPharmacyChildren   = "법인 CSO 업체"

	missing = "N/A"
)

// DetailsFunc receives the selected node and its children summary whenever
// the selection or the selected node's children change. It is called
// without the controller lock held.
type DetailsFunc func(n *graph.Node, summary string)

// Summary returns the children summary of a settled node, e.g. "3개".
func Summary(n *graph.Node) string {
	return fmt.Sprintf("%d개", n.ChildrenCount)
}

// Details is the content of the details panel for one node.
type Details struct {
	Name          string `json:"name"`
	CEOName       string `json:"ceo_name"`
	ID            string `json:"id"`
	Address       string `json:"address"`
	ChildrenLabel string `json:"children_label"`
	Summary       string `json:"summary"`
	IsPharmacy    bool   `json:"is_pharmacy"`
}

// NewDetails fills the panel for n. Missing values read "N/A".
func NewDetails(n *graph.Node, summary string) Details {
	d := Details{
		Name:          orElse(n.Name, "이름 없음"),
		CEOName:       orElse(n.CEOName, missing),
		ID:            orElse(n.ID, "번호 없음"),
		Address:       orElse(n.Address, missing),
		ChildrenLabel: LabelContractorChildren,
		Summary:       summary,
		IsPharmacy:    n.IsPharmacy,
	}
	if n.IsPharmacy {
		d.Name = strings.TrimSpace(strings.Replace(d.Name, "(제약사)", "", 1))
		d.ChildrenLabel = LabelPharmacyChildren
	}
	return d
}

// Lines renders the panel as "label : value" lines under the name.
func (d Details) Lines() []string {
	return []string{
		d.Name,
		"대표자명 : " + d.CEOName,
		"사업자등록번호 : " + d.ID,
		"주소 : " + d.Address,
		d.ChildrenLabel + " : " + d.Summary,
	}
}

func orElse(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
