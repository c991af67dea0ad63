package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2026-08-26 is a Wednesday.
func wednesdayAt(hour, minute int) time.Time {
	return time.Date(2026, 8, 26, hour, minute, 0, 0, time.UTC)
}

func scheduledSettings() StoreSettings {
	var schedule WeeklySchedule
	schedule[time.Wednesday] = DaySchedule{Enabled: true, Open: "18:00", Close: "23:00"}
	return StoreSettings{Mode: ModeAuto, Schedule: schedule, HasSchedule: true}
}

func TestOpenAtForcedModesWin(t *testing.T) {
	settings := scheduledSettings()

	settings.Mode = ModeForcedClosed
	assert.False(t, settings.OpenAt(wednesdayAt(19, 0)), "forced-closed wins inside the window")

	settings.Mode = ModeForcedOpen
	assert.True(t, settings.OpenAt(wednesdayAt(3, 0)), "forced-open wins outside the window")
}

func TestOpenAtSchedule(t *testing.T) {
	settings := scheduledSettings()

	assert.False(t, settings.OpenAt(wednesdayAt(17, 59)))
	assert.True(t, settings.OpenAt(wednesdayAt(18, 0)), "open minute is inclusive")
	assert.True(t, settings.OpenAt(wednesdayAt(20, 30)))
	assert.True(t, settings.OpenAt(wednesdayAt(23, 0)), "close minute is inclusive")
	assert.False(t, settings.OpenAt(wednesdayAt(23, 1)))
}

func TestOpenAtDisabledDay(t *testing.T) {
	settings := scheduledSettings()

	// Thursday has no schedule entry.
	thursday := wednesdayAt(19, 0).AddDate(0, 0, 1)
	assert.False(t, settings.OpenAt(thursday))
}

func TestOpenAtNoScheduleMeansOpen(t *testing.T) {
	settings := StoreSettings{Mode: ModeAuto}
	assert.True(t, settings.OpenAt(wednesdayAt(3, 0)))
}

func TestOpenAtMalformedClockClosesDay(t *testing.T) {
	settings := scheduledSettings()
	settings.Schedule[time.Wednesday].Open = "bogus"
	assert.False(t, settings.OpenAt(wednesdayAt(19, 0)))
}
