package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DayWindow is one day's opening window. Start/End are zero-padded
// 24h "HH:MM" strings so plain string comparison orders them correctly.
type DayWindow struct {
	Open  bool   `yaml:"open"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// WeekConfig maps lowercase English day names ("monday"...) to windows.
// It is read-only here; the admin side owns mutations.
type WeekConfig map[string]DayWindow

// Result explains an open/closed decision.
type Result struct {
	Open      bool   `json:"is_open"`
	Day       string `json:"current_day"`
	LocalTime string `json:"current_local_time"`
	Reason    string `json:"reason"`
}

const (
	ReasonOpen            = "open"
	ReasonNotYetOpen      = "not yet open"
	ReasonAlreadyClosed   = "already closed"
	ReasonDayClosed       = "day marked closed"
	ReasonDayUnconfigured = "day not configured"
)

// Evaluator decides open/closed against the establishment's single
// configured timezone. It does no I/O and is safe for concurrent use.
type Evaluator struct {
	loc *time.Location
}

func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{loc: loc}
}

func (e *Evaluator) IsOpen(cfg WeekConfig, now time.Time) bool {
	return e.Status(cfg, now).Open
}

// Status resolves now into the establishment's local day and HH:MM and
// checks it against that day's window. Windows where end < start
// (overnight) are not supported and evaluate as closed; day rollover is
// a known limitation, not a silent wrap.
func (e *Evaluator) Status(cfg WeekConfig, now time.Time) Result {
	local := now.In(e.loc)
	day := strings.ToLower(local.Weekday().String())
	hhmm := local.Format("15:04")

	res := Result{Day: day, LocalTime: hhmm}

	w, ok := cfg[day]
	if !ok {
		res.Reason = ReasonDayUnconfigured
		return res
	}
	if !w.Open {
		res.Reason = ReasonDayClosed
		return res
	}
	if w.End < w.Start {
		res.Reason = ReasonAlreadyClosed
		return res
	}
	switch {
	case hhmm < w.Start:
		res.Reason = ReasonNotYetOpen
	case hhmm > w.End:
		res.Reason = ReasonAlreadyClosed
	default:
		res.Open = true
		res.Reason = ReasonOpen
	}
	return res
}

func LoadWeekConfig(path string) (WeekConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business hours: %w", err)
	}
	var cfg WeekConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse business hours: %w", err)
	}
	return cfg, nil
}
