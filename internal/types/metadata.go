package types

// ProcessedMetadata is the terminal artifact handed to AI response generation.
// It is built once by the assembler and never modified afterwards.
type ProcessedMetadata struct {
	SessionID                 string           `json:"session_id"`
	Timestamp                 string           `json:"timestamp"`
	ProcessingDurationSeconds float64          `json:"processing_duration_seconds"`
	MediaDurationSeconds      float64          `json:"media_duration_seconds"`
	UserContext               UserContext      `json:"user_context"`
	VisualContext             VisualContext    `json:"visual_context"`
	TechnicalContext          TechnicalContext `json:"technical_context"`
}

type UserContext struct {
	Transcript     string   `json:"transcript"`
	IntentKeywords []string `json:"intent_keywords"`
	UserEmotion    string   `json:"user_emotion"`
	RequestType    string   `json:"request_type"`
}

type VisualContext struct {
	FramesAnalyzed     int         `json:"frames_analyzed"`
	UIElementsDetected []UIElement `json:"ui_elements_detected"`
	ColorPalette       []string    `json:"color_palette"`
	LayoutAnalysis     string      `json:"layout_analysis"`
	TextContent        []string    `json:"text_content"`
}

type TechnicalContext struct {
	DetectedFramework string   `json:"detected_framework"`
	ErrorPatterns     []string `json:"error_patterns"`
	SuggestedFocus    []string `json:"suggested_focus"`
}

// AgentExport packages a recording for an external coding agent instead of
// full metadata. Frames are JPEG data URLs.
type AgentExport struct {
	Frames       []string `json:"frames"`
	Transcript   string   `json:"transcript"`
	Instructions string   `json:"instructions"`
}
