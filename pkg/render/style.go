package render

import (
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/layout"
)

// Palette.
const (
	PharmacyFill   = "crimson"
	PharmacyStroke = "darkred"
	PharmacyLabel  = "rgb(255,255,255)"

	SelectedFill   = "rgb(255, 255, 128)"
	SelectedStroke = "crimson"
	SelectedLabel  = "crimson"

	ContractorFill     = "#8DB3D3"
	ContractorLeafFill = "#B0BEC5"
	ContractorStroke   = "#888"
	ContractorLabel    = "rgb(0,0,0)"

	EdgeColor         = "#bbb"
	SelectedEdgeColor = "rgb(30, 102, 161)"
)

// Marker ids referenced by edges.
const (
	MarkerStart         = "start"
	MarkerEnd           = "end"
	MarkerStartSelected = "start-selected"
	MarkerEndSelected   = "end-selected"
)

// EdgeGap is the distance kept between an edge's end and its target's rim.
const EdgeGap = 6

// NodeStyle is the visual state of one node.
type NodeStyle struct {
	Radius        float64 `json:"radius"`
	Fill          string  `json:"fill"`
	FillOpacity   float64 `json:"fill_opacity"`
	Stroke        string  `json:"stroke"`
	StrokeWidth   float64 `json:"stroke_width"`
	StrokeOpacity float64 `json:"stroke_opacity"`
	LabelFill     string  `json:"label_fill"`
	LabelSize     float64 `json:"label_size"`
	LabelBold     bool    `json:"label_bold,omitempty"`
	// LabelOffset is the vertical offset of the label from the center.
	LabelOffset float64 `json:"label_offset"`
}

// EdgeStyle is the visual state of one edge.
type EdgeStyle struct {
	Stroke      string  `json:"stroke"`
	Width       float64 `json:"width"`
	MarkerStart string  `json:"marker_start"`
	MarkerEnd   string  `json:"marker_end"`
	Selected    bool    `json:"selected,omitempty"`
}

// StyleNode derives a node's style from its kind, child count and whether it
// is the selected node.
func StyleNode(n *graph.Node, selected string) NodeStyle {
	r := layout.NodeRadius(n.IsPharmacy, n.ChildrenCount)
	if n.IsPharmacy {
		s := NodeStyle{
			Radius:        r,
			Fill:          PharmacyFill,
			FillOpacity:   1,
			Stroke:        PharmacyStroke,
			StrokeWidth:   2,
			StrokeOpacity: 1,
			LabelFill:     PharmacyLabel,
			LabelSize:     12,
		}
		if n.ID == selected {
			s.LabelSize = 14
		}
		return s
	}

	s := NodeStyle{
		Radius:        r,
		Fill:          ContractorFill,
		FillOpacity:   1,
		Stroke:        ContractorStroke,
		StrokeWidth:   1,
		StrokeOpacity: 1,
		LabelFill:     ContractorLabel,
		LabelSize:     12,
		LabelOffset:   r + 12,
	}
	if n.ChildrenCount <= 0 {
		s.Fill = ContractorLeafFill
		s.FillOpacity = 0
		s.StrokeOpacity = 0
	}
	if n.ID == selected {
		s.Fill = SelectedFill
		s.FillOpacity = 1
		s.Stroke = SelectedStroke
		s.StrokeWidth = 3
		s.StrokeOpacity = 1
		s.LabelFill = SelectedLabel
		s.LabelSize = 14
		s.LabelBold = true
	}
	return s
}

// StyleEdge derives an edge's style. Edges touching the selected node are
// highlighted.
func StyleEdge(e graph.Edge, selected string) EdgeStyle {
	if selected != "" && (e.Source == selected || e.Target == selected) {
		return EdgeStyle{
			Stroke:      SelectedEdgeColor,
			Width:       0.5,
			MarkerStart: MarkerStartSelected,
			MarkerEnd:   MarkerEndSelected,
			Selected:    true,
		}
	}
	return EdgeStyle{
		Stroke:      EdgeColor,
		Width:       0.5,
		MarkerStart: MarkerStart,
		MarkerEnd:   MarkerEnd,
	}
}
