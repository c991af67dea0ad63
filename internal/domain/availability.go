package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StoreMode is the three-way availability override for the online channel.
type StoreMode string

const (
	ModeForcedOpen   StoreMode = "forced-open"
	ModeForcedClosed StoreMode = "forced-closed"
	ModeAuto         StoreMode = "auto"
)

// DaySchedule is one weekday's opening window, minute granularity,
// local time, "HH:MM" formatted.
type DaySchedule struct {
	Enabled bool   `json:"enabled"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

// WeeklySchedule holds one DaySchedule per weekday, Sunday first.
type WeeklySchedule [7]DaySchedule

// StoreSettings is the settings/store document: availability gating for
// the online channel plus order approval policy and Pix merchant config.
// Counter sales are never gated by availability.
type StoreSettings struct {
	Mode            StoreMode      `json:"storeMode"`
	Schedule        WeeklySchedule `json:"weeklySchedule"`
	HasSchedule     bool           `json:"hasSchedule"`
	AutoApprove     bool           `json:"autoApprove"`
	PixKey          string         `json:"pixKey"`
	PixMerchantName string         `json:"pixMerchantName"`
	PixMerchantCity string         `json:"pixMerchantCity"`
	StoreAddress    string         `json:"storeAddress"`
}

// OpenAt decides whether new customer orders are accepted at t.
// forced-open and forced-closed win over the schedule; auto with no
// configured schedule means always open.
func (s StoreSettings) OpenAt(t time.Time) bool {
	switch s.Mode {
	case ModeForcedOpen:
		return true
	case ModeForcedClosed:
		return false
	}

	if !s.HasSchedule {
		return true
	}

	day := s.Schedule[int(t.Weekday())]
	if !day.Enabled {
		return false
	}

	open, err := parseClock(day.Open)
	if err != nil {
		return false
	}
	close, err := parseClock(day.Close)
	if err != nil {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	return minute >= open && minute <= close
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}
