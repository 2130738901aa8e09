package server

import "TimeBounce/internal/sim"

type ballDTO struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Radius        float64 `json:"radius"`
	VelocityY     float64 `json:"velocity_y"`
	AccelerationY float64 `json:"acceleration_y"`
}

type viewportDTO struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

type energyDTO struct {
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Total     float64 `json:"total"`
}

type historyDTO struct {
	FramesStored    int     `json:"frames_stored"`
	MaxFrames       int     `json:"max_frames"`
	RetainedSeconds float64 `json:"time_stored_seconds"`
	CanRewind       bool    `json:"can_rewind"`
}

// stateMsg is the snapshot pushed to a viewer after every mutating command
// and on every play tick.
type stateMsg struct {
	Type      string      `json:"type"` // always "simulation_state"
	Time      float64     `json:"time"`
	IsPlaying bool        `json:"is_playing"`
	Ball      ballDTO     `json:"ball"`
	GroundY   float64     `json:"ground_y"`
	Height    float64     `json:"height_above_ground"`
	Energy    energyDTO   `json:"energy"`
	Viewport  viewportDTO `json:"viewport"`
	History   historyDTO  `json:"history"`
	Truncated bool        `json:"history_truncated,omitempty"`
}

type errorMsg struct {
	Type    string `json:"type"` // always "error"
	Message string `json:"message"`
}

func stateMessage(snap sim.Snapshot, info sim.HistoryInfo, truncated bool) stateMsg {
	return stateMsg{
		Type:      "simulation_state",
		Time:      snap.Time,
		IsPlaying: snap.Playing,
		Ball: ballDTO{
			X:             snap.Ball.X,
			Y:             snap.Ball.Y,
			Radius:        snap.Ball.Radius,
			VelocityY:     snap.Ball.VelocityY,
			AccelerationY: snap.Ball.AccelerationY,
		},
		GroundY: snap.GroundY,
		Height:  snap.Height,
		Energy: energyDTO{
			Kinetic:   snap.Energy.Kinetic,
			Potential: snap.Energy.Potential,
			Total:     snap.Energy.Total,
		},
		Viewport: viewportDTO{
			MinX: snap.Viewport.MinX,
			MaxX: snap.Viewport.MaxX,
			MinY: snap.Viewport.MinY,
			MaxY: snap.Viewport.MaxY,
		},
		History: historyDTO{
			FramesStored:    info.FramesStored,
			MaxFrames:       info.MaxFrames,
			RetainedSeconds: info.RetainedSeconds,
			CanRewind:       info.CanRewind,
		},
		Truncated: truncated,
	}
}

func errorMessage(msg string) errorMsg {
	return errorMsg{Type: "error", Message: msg}
}
