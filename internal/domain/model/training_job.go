package model

import (
	"encoding/json"
	"math"
	"net/url"
	"strings"
	"time"

	"ai-image-studio/internal/domain"
)

type TrainingStatus string

const (
	TrainingStatusPending   TrainingStatus = "pending"
	TrainingStatusTraining  TrainingStatus = "training"
	TrainingStatusCompleted TrainingStatus = "completed"
	TrainingStatusFailed    TrainingStatus = "failed"
)

func (s TrainingStatus) IsTerminal() bool {
	return s == TrainingStatusCompleted || s == TrainingStatusFailed
}

// TrainingJob mirrors one provider training run.
type TrainingJob struct {
	ID            string // UUID
	UserID        string
	ModelName     string
	Gender        string
	SourceDataRef string
	Status        TrainingStatus
	ExternalJobID string
	ModelID       string
	ModelVersion  string
	Progress      int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewTrainingJob(id, userID, modelName, gender, sourceDataRef, externalJobID string) (*TrainingJob, error) {
	if id == "" || userID == "" || externalJobID == "" || strings.TrimSpace(modelName) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &TrainingJob{
		ID:            id,
		UserID:        userID,
		ModelName:     strings.TrimSpace(modelName),
		Gender:        gender,
		SourceDataRef: sourceDataRef,
		Status:        TrainingStatusPending,
		ExternalJobID: externalJobID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TrainingUpdate is one of TrainingStarted, TrainingProgressed, TrainingSucceeded,
// TrainingFailed or TrainingPassthrough.
type TrainingUpdate interface {
	trainingUpdate()
}

type TrainingStarted struct {
	ProvisionalModelID string
}

type TrainingProgressed struct {
	Progress int
}

type TrainingSucceeded struct {
	CompletedAt  time.Time
	ModelID      string
	ModelVersion string
}

type TrainingFailed struct {
	ErrorMessage string
	CompletedAt  time.Time
}

// TrainingPassthrough stores an unrecognized provider status verbatim.
type TrainingPassthrough struct {
	Status string
}

func (TrainingStarted) trainingUpdate()     {}
func (TrainingProgressed) trainingUpdate()  {}
func (TrainingSucceeded) trainingUpdate()   {}
func (TrainingFailed) trainingUpdate()      {}
func (TrainingPassthrough) trainingUpdate() {}

// ApplyTrainingUpdate merges u into job and reports whether the job changed.
// Terminal jobs only accept a repeat of their own terminal update, which may
// backfill the final model id and version.
func ApplyTrainingUpdate(job *TrainingJob, u TrainingUpdate, now time.Time) bool {
	if job.Status.IsTerminal() {
		switch v := u.(type) {
		case TrainingSucceeded:
			if job.Status != TrainingStatusCompleted {
				return false
			}
			changed := false
			if v.ModelID != "" && job.ModelID != v.ModelID {
				job.ModelID = v.ModelID
				changed = true
			}
			if v.ModelVersion != "" && job.ModelVersion != v.ModelVersion {
				job.ModelVersion = v.ModelVersion
				changed = true
			}
			if changed {
				job.UpdatedAt = now
			}
			return changed
		default:
			return false
		}
	}

	switch v := u.(type) {
	case TrainingStarted:
		job.Status = TrainingStatusTraining
		job.Progress = 5
		if job.ModelID == "" {
			job.ModelID = v.ProvisionalModelID
		}
	case TrainingProgressed:
		job.Status = TrainingStatusTraining
		job.Progress = v.Progress
	case TrainingSucceeded:
		job.Status = TrainingStatusCompleted
		job.Progress = 100
		at := v.CompletedAt
		job.CompletedAt = &at
		if v.ModelID != "" {
			job.ModelID = v.ModelID
		}
		if v.ModelVersion != "" {
			job.ModelVersion = v.ModelVersion
		}
		job.ErrorMessage = ""
	case TrainingFailed:
		job.Status = TrainingStatusFailed
		job.Progress = 0
		job.ErrorMessage = v.ErrorMessage
		at := v.CompletedAt
		job.CompletedAt = &at
	case TrainingPassthrough:
		job.Status = TrainingStatus(v.Status)
	default:
		return false
	}
	job.UpdatedAt = now
	return true
}

// TrainingCallback is the provider's webhook envelope.
type TrainingCallback struct {
	ID          string          `json:"id" validate:"required"`
	Status      string          `json:"status" validate:"required"`
	CompletedAt *time.Time      `json:"completed_at"`
	Error       json.RawMessage `json:"error"`
	Output      json.RawMessage `json:"output"`
	Logs        string          `json:"logs"`
	Metrics     json.RawMessage `json:"metrics"`
	Version     string          `json:"version"`
}

// ToUpdate translates the callback into a TrainingUpdate.
func (c TrainingCallback) ToUpdate(now time.Time) TrainingUpdate {
	switch strings.ToLower(c.Status) {
	case "starting":
		return TrainingStarted{ProvisionalModelID: c.ID}
	case "processing":
		return TrainingProgressed{Progress: progressFromMetrics(c.Metrics)}
	case "succeeded":
		at := now
		if c.CompletedAt != nil && !c.CompletedAt.IsZero() {
			at = *c.CompletedAt
		}
		id, version := ParseModelReference(outputVersion(c.Output))
		return TrainingSucceeded{CompletedAt: at, ModelID: id, ModelVersion: version}
	case "failed":
		msg := errorText(c.Error)
		if msg == "" {
			msg = strings.TrimSpace(c.Logs)
		}
		if msg == "" {
			msg = "Training failed"
		}
		return TrainingFailed{ErrorMessage: msg, CompletedAt: now}
	case "canceled", "cancelled":
		msg := errorText(c.Error)
		if msg == "" {
			msg = strings.TrimSpace(c.Logs)
		}
		if msg == "" {
			msg = "Training was canceled"
		}
		return TrainingFailed{ErrorMessage: msg, CompletedAt: now}
	}
	return TrainingPassthrough{Status: c.Status}
}

func progressFromMetrics(raw json.RawMessage) int {
	var m struct {
		CurrentStep *float64 `json:"current_step"`
		TotalSteps  *float64 `json:"total_steps"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil ||
		m.CurrentStep == nil || m.TotalSteps == nil || *m.TotalSteps <= 0 {
		return 50
	}
	p := int(math.Round(*m.CurrentStep / *m.TotalSteps * 100))
	if p > 95 {
		p = 95
	}
	if p < 0 {
		p = 0
	}
	return p
}

// outputVersion extracts the version reference from the output field, which is
// either an object carrying "version" or a bare string.
func outputVersion(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Version string `json:"version"`
		Weights string `json:"weights"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Version != "" {
			return obj.Version
		}
		return obj.Weights
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// ParseModelReference splits "owner/model:version" into model id and version.
// URLs fall back to their last two path segments, skipping a "versions" segment
// as in https://replicate.com/owner/model/versions/<id>.
func ParseModelReference(ref string) (modelID, version string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ""
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
		switch len(segs) {
		case 0:
			return "", ""
		case 1:
			return segs[0], ""
		}
		if len(segs) >= 3 && segs[len(segs)-2] == "versions" {
			return segs[len(segs)-3], segs[len(segs)-1]
		}
		return segs[len(segs)-2], segs[len(segs)-1]
	}
	name, ver, _ := strings.Cut(ref, ":")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name, ver
}
