package app

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

// View is the render model pushed to the browser. It carries everything the
// UI shows, already formatted, and which controls are enabled.
type View struct {
	Session     string         `json:"session"`
	Recording   bool           `json:"is_recording"`
	Speaker     *domain.Member `json:"current_speaker"`
	Total       ClockView      `json:"total"`
	Turn        TurnView       `json:"turn"`
	Members     []MemberView   `json:"members"`
	Queue       []QueueEntry   `json:"queue"`
	Presets     []PresetView   `json:"presets"`
	Roles       []domain.Role  `json:"roles"`
	CanBuild    bool           `json:"can_build"`
	CanShuffle  bool           `json:"can_shuffle"`
	CanRotate   bool           `json:"can_rotate"`
	DeviceReady bool           `json:"device_ready"`
}

type ClockView struct {
	Seconds int    `json:"seconds"`
	Text    string `json:"text"`
}

type TurnView struct {
	State     string  `json:"state"`
	Remaining int     `json:"remaining"`
	Limit     int     `json:"limit"`
	Text      string  `json:"text"`
	Progress  float64 `json:"progress"`
	Warning   bool    `json:"warning"`
}

type MemberView struct {
	domain.Member
	LimitText string `json:"limit_text"`
}

type QueueEntry struct {
	Position   int            `json:"position"`
	Member     domain.Member  `json:"member"`
	Next       bool           `json:"next"`
	Speaking   bool           `json:"speaking"`
	CanStart   bool           `json:"can_start"`
	CanStop    bool           `json:"can_stop"`
	CanDequeue bool           `json:"can_dequeue"`
	Recording  *RecordingView `json:"recording,omitempty"`
}

type RecordingView struct {
	domain.Recording
	DurationText string `json:"duration_text"`
	SizeText     string `json:"size_text"`
	When         string `json:"when"`
}

type PresetView struct {
	ID      domain.PresetID `json:"id"`
	Name    string          `json:"name"`
	Members int             `json:"members"`
}

// FormatClock renders seconds as m:ss. Minutes are not capped at 59.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Progress is remaining as a percentage of limit, clamped to [0, 100].
func Progress(remaining, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	p := float64(remaining) / float64(limit) * 100
	return min(max(p, 0), 100)
}

// Warning reports whether remaining dropped below ratio of limit.
func Warning(remaining, limit int, ratio float64) bool {
	return float64(remaining) < float64(limit)*ratio
}

func newTurnView(c *core.Countdown, speaker *domain.Member, defaultLimit int, ratio float64) TurnView {
	limit, remaining := c.Limit(), c.Remaining()
	if speaker != nil {
		limit = speaker.TimeLimit
	}
	if limit <= 0 && c.State() == core.TurnIdle {
		// nothing has been timed yet
		limit, remaining = defaultLimit, defaultLimit
	}
	return TurnView{
		State:     c.State().String(),
		Remaining: remaining,
		Limit:     limit,
		Text:      FormatClock(remaining),
		Progress:  Progress(remaining, limit),
		Warning:   Warning(remaining, limit, ratio),
	}
}

func newRecordingView(rec domain.Recording, now time.Time) *RecordingView {
	return &RecordingView{
		Recording:    rec,
		DurationText: FormatClock(rec.Duration),
		SizeText:     humanize.Bytes(uint64(max(rec.Size, 0))),
		When:         humanize.RelTime(rec.Timestamp, now, "ago", "from now"),
	}
}
