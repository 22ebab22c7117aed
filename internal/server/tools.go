package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the specimen photograph",
	}
}

func rectSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
			"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
			"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
			"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func excludeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Bounding rectangles of regions already confirmed, as returned in exclude. Each is inflated by the mask margin and masked out in order before extraction.",
		"items":       rectSchema("A confirmed region's bounding rectangle"),
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "label_candidates",
			Description: "Extract the closed regions that may be the label or the scale bar, largest first. Present them to the user one at a time, starting at index 0.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"exclude": excludeProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "label_annotate",
			Description: "Draw a candidate's bounding rectangle on a fresh copy of the photograph and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"bounds": rectSchema("The candidate's bounding rectangle"),
					"max_side": map[string]interface{}{
						"type":        "integer",
						"description": "Downscale the returned image so neither side exceeds this. Default 1600, 0 keeps full size",
						"default":     1600,
					},
				},
				"required": []string{"path", "bounds"},
			},
		},
		{
			Name:        "label_best_fit",
			Description: "Classify a candidate as the rectangle, circle or ellipse whose area best matches its outline.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"exclude": excludeProperty(),
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Candidate index as returned by label_candidates with the same exclude list",
					},
				},
				"required": []string{"path", "index"},
			},
		},
		{
			Name:        "label_refine",
			Description: "Mask a confirmed region out of the photograph and return the candidates that remain. Pass the returned exclude list to later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"exclude":   excludeProperty(),
					"confirmed": rectSchema("Bounding rectangle of the region the user confirmed"),
				},
				"required": []string{"path", "confirmed"},
			},
		},
		{
			Name:        "label_scale",
			Description: "Convert label pixel dimensions into scale-bar units and format the report line.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"label_width":  map[string]interface{}{"type": "number", "description": "Label width in pixels"},
					"label_height": map[string]interface{}{"type": "number", "description": "Label height in pixels"},
					"bar_width": map[string]interface{}{
						"type":        "number",
						"description": "Scale bar width in pixels. Ignored for convention none",
					},
					"convention": map[string]interface{}{
						"type":        "string",
						"description": "reference: a 2 cm bar, result in cm. operator_unit: a bar one unit long. none: keep pixels",
						"enum":        []string{"reference", "operator_unit", "none"},
					},
					"unit": map[string]interface{}{
						"type":        "string",
						"description": "Unit of an operator_unit bar, e.g. cm or mm",
					},
				},
				"required": []string{"label_width", "label_height", "convention"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
