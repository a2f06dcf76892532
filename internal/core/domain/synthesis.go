package domain

// SynthesisRequest carries a freehand trace plus everything the pipeline
// needs to turn it into a street-aligned route.
type SynthesisRequest struct {
	Trace        []PlanarPoint `json:"trace"`
	CanvasWidth  float64       `json:"canvas_width"`
	CanvasHeight float64       `json:"canvas_height"`

	// Exactly one of Bounds or Anchor selects the projection mode.
	Bounds *Bounds   `json:"bounds,omitempty"`
	Anchor *GeoPoint `json:"anchor,omitempty"`
	// DegreesPerPixel only applies in anchored mode; zero means the default.
	DegreesPerPixel float64 `json:"degrees_per_pixel,omitempty"`

	Profile         Profile `json:"profile"`
	PreserveShape   bool    `json:"preserve_shape"`
	AvoidHighways   bool    `json:"avoid_highways"`
	OptimizeOrder   bool    `json:"optimize_order"`
	Name            string  `json:"name,omitempty"`

	MinPoints      int  `json:"min_points,omitempty"`
	MaxPoints      int  `json:"max_points,omitempty"`
	PreserveCurves bool `json:"preserve_curves"`
}

// SynthesisStage names one step of the pipeline state machine.
type SynthesisStage string

const (
	StageIdle           SynthesisStage = "idle"
	StageSimplifying    SynthesisStage = "simplifying"
	StageProjecting     SynthesisStage = "projecting"
	StageOptimizing     SynthesisStage = "optimizing"
	StageRouting        SynthesisStage = "routing_segments"
	StagePostProcessing SynthesisStage = "post_processing"
	StageDone           SynthesisStage = "done"
	StageFailed         SynthesisStage = "failed"
)

// StageEvent is broadcast while a synthesis call walks its state machine,
// so renderers can show progress.
type StageEvent struct {
	RequestID string         `json:"request_id,omitempty"`
	Stage     SynthesisStage `json:"stage"`
	Waypoints int            `json:"waypoints,omitempty"`
}
