package scene

import "sightline/pkg/geo"

// Building is a 3D context object: a footprint polygon in pixel space with
// an effective height. HeightM may arrive unresolved (0) and be filled by
// the terrain height-provider chain.
type Building struct {
	ID        string      `json:"id"`
	Footprint []geo.Pixel `json:"footprint"`
	HeightM   float64     `json:"height_m"`
}

// Tree is a crown approximated as a circular stamp of CrownRadiusM around
// the trunk position.
type Tree struct {
	ID           string    `json:"id"`
	Center       geo.Pixel `json:"center"`
	CrownRadiusM float64   `json:"crown_radius_m"`
	HeightM      float64   `json:"height_m"`
}

// Sign is a thin vertical obstruction: a panel of WidthM x HeightM mounted
// ClearanceM above ground, rotated YawDeg in the canvas plane.
type Sign struct {
	ID         string    `json:"id"`
	Center     geo.Pixel `json:"center"`
	WidthM     float64   `json:"width_m"`
	HeightM    float64   `json:"height_m"`
	ClearanceM float64   `json:"clearance_m"`
	YawDeg     float64   `json:"yaw_deg"`
}
