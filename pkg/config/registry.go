package config

// Persistent state keys (Registry)
const (
	KeyViewerHeightFt  = "viewer_height_ft"
	KeyTargetHeightFt  = "target_height_ft"
	KeySampleStepPx    = "sample_step_px"
	KeyPasses          = "visibility_passes"
	KeyShowShading     = "show_shading_layer"
	KeyActiveProjectID = "active_project_id"
)
