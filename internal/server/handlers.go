package server

import (
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/detection"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/measure"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "label_candidates", "label_refine").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "label_candidates":
		return s.handleLabelCandidates(args)
	case "label_annotate":
		return s.handleLabelAnnotate(args)
	case "label_best_fit":
		return s.handleLabelBestFit(args)
	case "label_refine":
		return s.handleLabelRefine(args)
	case "label_scale":
		return s.handleLabelScale(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// Bounds is a rectangle in tool arguments and results. X2 and Y2 are
// exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b Bounds) rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// CandidateInfo describes one candidate region.
type CandidateInfo struct {
	Index  int     `json:"index"`
	Area   float64 `json:"area"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Bounds Bounds  `json:"bounds"`
}

// CandidatesResult is returned by label_candidates and label_refine.
type CandidatesResult struct {
	Candidates []CandidateInfo `json:"candidates"`
	Count      int             `json:"count"`

	// Exclude lists the confirmed rectangles as given, to pass unchanged to
	// later calls. Masked lists the inflated rectangles actually painted out.
	Exclude []Bounds `json:"exclude"`
	Masked  []Bounds `json:"masked"`
	Backend string   `json:"backend"`
}

// candidates extracts from the cached image at path with each rectangle of
// exclude masked out in order.
func (s *Server) candidates(path string, exclude []Bounds) (detection.CandidateList, detection.Frame, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, detection.Frame{}, err
	}
	s.log.WithFields(logrus.Fields{
		"path":    path,
		"exclude": len(exclude),
		"cached":  s.cache.Len(),
	}).Debug("extracting candidates")

	frame := detection.NewFrame(img)
	if len(exclude) == 0 {
		list, err := s.extractor.ExtractFrame(frame)
		return list, frame, err
	}

	var list detection.CandidateList
	for _, b := range exclude {
		if list, frame, err = s.refiner.Exclude(frame, b.rect()); err != nil {
			return nil, frame, err
		}
	}
	return list, frame, nil
}

func (s *Server) candidatesResult(list detection.CandidateList, frame detection.Frame, exclude []Bounds) *CandidatesResult {
	res := &CandidatesResult{
		Candidates: make([]CandidateInfo, len(list)),
		Count:      len(list),
		Exclude:    append([]Bounds{}, exclude...),
		Masked:     make([]Bounds, len(frame.Excluded)),
		Backend:    s.extractor.Backend().Name(),
	}
	for i, c := range list {
		res.Candidates[i] = CandidateInfo{
			Index:  i,
			Area:   c.Area,
			Width:  c.Bounds.Dx(),
			Height: c.Bounds.Dy(),
			Bounds: boundsOf(c.Bounds),
		}
	}
	for i, r := range frame.Excluded {
		res.Masked[i] = boundsOf(r)
	}
	return res
}

type labelCandidatesArgs struct {
	Path    string   `json:"path"`
	Exclude []Bounds `json:"exclude"`
}

func (s *Server) handleLabelCandidates(args json.RawMessage) (interface{}, error) {
	var a labelCandidatesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	list, frame, err := s.candidates(a.Path, a.Exclude)
	if err != nil {
		return nil, err
	}
	return s.candidatesResult(list, frame, a.Exclude), nil
}

type labelAnnotateArgs struct {
	Path    string `json:"path"`
	Bounds  Bounds `json:"bounds"`
	MaxSide *int   `json:"max_side"`
}

func (s *Server) handleLabelAnnotate(args json.RawMessage) (interface{}, error) {
	var a labelAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	maxSide := 1600
	if a.MaxSide != nil {
		maxSide = *a.MaxSide
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r := a.Bounds.rect()
	if !r.Overlaps(img.Bounds()) {
		return nil, fmt.Errorf("bounds %v outside image %v", r, img.Bounds())
	}
	return imaging.Encode(imaging.DrawRectangle(img, r, s.stroke), maxSide)
}

type labelBestFitArgs struct {
	Path    string   `json:"path"`
	Exclude []Bounds `json:"exclude"`
	Index   int      `json:"index"`
}

// BestFitResult is returned by label_best_fit.
type BestFitResult struct {
	Candidate CandidateInfo   `json:"candidate"`
	Best      detection.Fit   `json:"best"`
	Fits      []detection.Fit `json:"fits"`
}

func (s *Server) handleLabelBestFit(args json.RawMessage) (interface{}, error) {
	var a labelBestFitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	list, frame, err := s.candidates(a.Path, a.Exclude)
	if err != nil {
		return nil, err
	}
	if a.Index < 0 || a.Index >= len(list) {
		return nil, fmt.Errorf("candidate index %d out of range: %d candidates", a.Index, len(list))
	}

	c := list[a.Index]
	fits, err := s.fitter.Evaluate(c.Contour)
	if err != nil {
		return nil, err
	}
	best, err := s.fitter.BestFit(c.Contour)
	if err != nil {
		return nil, err
	}
	return &BestFitResult{
		Candidate: s.candidatesResult(list[a.Index:a.Index+1], frame, a.Exclude).Candidates[0],
		Best:      best,
		Fits:      fits,
	}, nil
}

type labelRefineArgs struct {
	Path      string   `json:"path"`
	Exclude   []Bounds `json:"exclude"`
	Confirmed Bounds   `json:"confirmed"`
}

func (s *Server) handleLabelRefine(args json.RawMessage) (interface{}, error) {
	var a labelRefineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	exclude := append(append([]Bounds{}, a.Exclude...), a.Confirmed)
	list, frame, err := s.candidates(a.Path, exclude)
	if err != nil {
		return nil, err
	}
	return s.candidatesResult(list, frame, exclude), nil
}

type labelScaleArgs struct {
	LabelWidth  float64 `json:"label_width"`
	LabelHeight float64 `json:"label_height"`
	BarWidth    float64 `json:"bar_width"`
	Convention  string  `json:"convention"`
	Unit        string  `json:"unit"`
}

// ScaleResult is returned by label_scale.
type ScaleResult struct {
	Scaled measure.Dimensions `json:"scaled"`
	Unit   string             `json:"unit"`
	Report string             `json:"report"`
}

func (s *Server) handleLabelScale(args json.RawMessage) (interface{}, error) {
	var a labelScaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	conv := measure.Convention(a.Convention)
	unit := ""
	switch conv {
	case measure.ConventionNone:
		unit = measure.UnitPixels
	case measure.ConventionReference:
		unit = measure.ReferenceUnit
	case measure.ConventionOperatorUnit:
		unit = strings.ToLower(strings.TrimSpace(a.Unit))
		if unit == "" {
			return nil, fmt.Errorf("unit is required for convention %q", conv)
		}
	default:
		return nil, fmt.Errorf("unknown convention %q", a.Convention)
	}

	scaled, err := measure.Scale(measure.Dimensions{Width: a.LabelWidth, Height: a.LabelHeight}, a.BarWidth, conv)
	if err != nil {
		return nil, err
	}
	return &ScaleResult{Scaled: scaled, Unit: unit, Report: measure.FormatReport(scaled, unit)}, nil
}
