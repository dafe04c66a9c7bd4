// Package api defines the JSON payloads exchanged between the daemon and
// its clients, plus thin services that shape store data for transport.
package api

import "time"

// DaemonStatus is the top-level health payload.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	HistoryDBPath string             `json:"history_db_path"`
	LockFilePath  string             `json:"lock_file_path"`
	ActiveRender  *RenderStatus      `json:"active_render,omitempty"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// DependencyStatus mirrors deps.Status for transport.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// InspectRequest carries source for analysis without rendering.
type InspectRequest struct {
	Source string `json:"source"`
}

// InspectResponse reports what the analyzer found.
type InspectResponse struct {
	SceneClasses    []string `json:"scene_classes"`
	TotalAnimations int      `json:"total_animations"`
	SyntaxValid     bool     `json:"syntax_valid"`
	SyntaxError     string   `json:"syntax_error,omitempty"`
	SyntaxLine      int      `json:"syntax_line,omitempty"`
	FormattedSource string   `json:"formatted_source,omitempty"`
}

// RenderRequest submits a render.
type RenderRequest struct {
	Source  string `json:"source"`
	Scene   string `json:"scene,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// RenderAccepted is returned when a render is queued.
type RenderAccepted struct {
	ID    string `json:"id"`
	Scene string `json:"scene"`
}

// RenderStatus is the live state of a render.
type RenderStatus struct {
	ID        string    `json:"id"`
	Scene     string    `json:"scene"`
	Quality   string    `json:"quality"`
	Status    string    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// ProgressEvent is one websocket progress frame.
type ProgressEvent struct {
	ID      string `json:"id"`
	Percent int    `json:"percent"`
	Status  string `json:"status"`
	Stage   string `json:"stage"`
	Done    bool   `json:"done"`
	Outcome string `json:"outcome,omitempty"`
}

// HistoryRecord is one finished or in-flight render in history.
type HistoryRecord struct {
	ID              string    `json:"id"`
	Scene           string    `json:"scene"`
	Quality         string    `json:"quality"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ArtifactPath    string    `json:"artifact_path,omitempty"`
	ArtifactSize    int64     `json:"artifact_size,omitempty"`
	TotalAnimations int       `json:"total_animations,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Log             string    `json:"log,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HistoryListResponse wraps a history listing.
type HistoryListResponse struct {
	Records []HistoryRecord `json:"records"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
