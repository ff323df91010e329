// Package model contains domain models passed between layers.
package model

import (
	"github.com/okian/statboard/internal/domain/clock"
	"github.com/okian/statboard/internal/domain/scorecodec"
	"github.com/okian/statboard/pkg/errs"
)

// Stat is one immutable observation of a user's stat in a game.
type Stat struct {
	User           string
	Game           string
	Stat           string
	Value          float64
	Day            uint64 // start of the day bucket, ms since epoch
	AddedTimestamp uint64 // server-assigned write time, ms since epoch
}

// Validate checks the fields a client controls.
func (s Stat) Validate() error {
	const op = "model.stat.validate"
	switch {
	case s.User == "":
		return errs.Validation(op, "user must not be empty")
	case s.Game == "":
		return errs.Validation(op, "game must not be empty")
	case s.Stat == "":
		return errs.Validation(op, "stat must not be empty")
	case !scorecodec.Finite(s.Value):
		return errs.Validation(op, "value must be a finite number")
	case !clock.IsDay(s.Day):
		return errs.Validation(op, "day must be a multiple of 86400000")
	}
	return nil
}

// StatInput is a stat submitted by a client. Value is required; Day defaults
// to the current day bucket.
type StatInput struct {
	User  string
	Game  string
	Stat  string
	Value *float64
	Day   *uint64
}

// StatView is the JSON shape of a stat returned to clients.
type StatView struct {
	User           string  `json:"user"`
	Game           string  `json:"game"`
	Stat           string  `json:"stat"`
	Value          float64 `json:"value"`
	AddedTimestamp uint64  `json:"addedTimestamp"`
	Day            uint64  `json:"day"`
}

// View returns the client-facing view of s.
func (s Stat) View() StatView {
	return StatView{
		User:           s.User,
		Game:           s.Game,
		Stat:           s.Stat,
		Value:          s.Value,
		AddedTimestamp: s.AddedTimestamp,
		Day:            s.Day,
	}
}

// Views maps stats to their views, never returning nil.
func Views(stats []Stat) []StatView {
	out := make([]StatView, 0, len(stats))
	for _, s := range stats {
		out = append(out, s.View())
	}
	return out
}
