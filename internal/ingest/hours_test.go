package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
	"github.com/toyohara-midori/dcin/internal/core/clock"
)

func gateAt(hhmmss string) *HoursGate {
	layout := "15:04"
	if len(hhmmss) > 5 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, hhmmss)
	if err != nil {
		panic(err)
	}
	now := time.Date(2026, 9, 1, t.Hour(), t.Minute(), t.Second(), 0, time.Local)
	return NewHoursGate(clock.Fixed{T: now}, nil)
}

func TestHoursGate_Normal(t *testing.T) {
	tests := []struct {
		at   string
		want bool // allowed
	}{
		{"07:59", false},
		{"08:00", true}, // inclusive start
		{"12:00", true},
		{"20:00", true}, // inclusive end
		{"20:00:00", true},
		{"20:00:01", false}, // the window closes at 20:00:00 sharp
		{"20:00:59", false},
		{"20:01", false},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			err := gateAt(tt.at).Check(context.Background(), ModeNormal)
			if tt.want && err != nil {
				t.Errorf("want allowed at %s, got %v", tt.at, err)
			}
			if !tt.want && err == nil {
				t.Errorf("want rejected at %s", tt.at)
			}
		})
	}
}

func TestHoursGate_SameDay(t *testing.T) {
	if err := gateAt("05:00").Check(context.Background(), ModeSameDay); err != nil {
		t.Errorf("want allowed at 05:00, got %v", err)
	}
	if err := gateAt("10:50").Check(context.Background(), ModeSameDay); err != nil {
		t.Errorf("want allowed at 10:50, got %v", err)
	}
	if err := gateAt("10:50:59").Check(context.Background(), ModeSameDay); err == nil {
		t.Error("want rejected at 10:50:59")
	}
	if err := gateAt("10:51").Check(context.Background(), ModeSameDay); err == nil {
		t.Error("want rejected at 10:51")
	}
}

func TestHoursGate_RejectionNamesWindow(t *testing.T) {
	err := gateAt("21:00").Check(context.Background(), ModeNormal)
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		t.Fatalf("want AppError, got %v", err)
	}
	if appErr.Code != apperror.CodeOutsideWindow {
		t.Errorf("code = %s, want %s", appErr.Code, apperror.CodeOutsideWindow)
	}
	if appErr.Details["start"] != "08:00" || appErr.Details["end"] != "20:00" {
		t.Errorf("window bounds missing from details: %v", appErr.Details)
	}
}

func TestHoursGate_UnknownMode(t *testing.T) {
	if err := gateAt("12:00").Check(context.Background(), Mode("night")); err == nil {
		t.Error("want error for unknown mode")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeNormal, false},
		{"normal", ModeNormal, false},
		{"sameday", ModeSameDay, false},
		{"night", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q): want error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
