package notifier

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/webvy/webvy/pkg/logger"
)

type sent struct {
	title, message string
}

func capture(enabled bool) (*BuildNotifier, *[]sent) {
	var got []sent
	n := NewWithSender(Config{Enabled: enabled}, logger.NewNopLogger(), func(title, message string) error {
		got = append(got, sent{title, message})
		return nil
	})
	return n, &got
}

func TestNotifier_BuildSuccess(t *testing.T) {
	n, got := capture(true)
	n.NotifyBuildSuccess("Blog", 12, 1500*time.Millisecond)

	if len(*got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(*got))
	}
	if msg := (*got)[0].message; msg != "Blog: 12 pages in 1.5s" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestNotifier_BuildFailure(t *testing.T) {
	n, got := capture(true)
	n.NotifyBuildFailure("Blog", errors.New("template page.html: bad"))

	if len(*got) != 1 || !strings.Contains((*got)[0].message, "template page.html: bad") {
		t.Errorf("unexpected notifications %+v", *got)
	}
}

func TestNotifier_BuildStart(t *testing.T) {
	n, got := capture(true)
	n.NotifyBuildStart("Blog", 3)

	if len(*got) != 1 || (*got)[0].message != "Rebuilding Blog (3 changed)" {
		t.Errorf("unexpected notifications %+v", *got)
	}
}

func TestNotifier_Disabled(t *testing.T) {
	n, got := capture(false)

	n.NotifyBuildStart("Blog", 1)
	n.NotifyBuildSuccess("Blog", 1, time.Second)
	n.NotifyBuildFailure("Blog", errors.New("x"))

	if len(*got) != 0 {
		t.Errorf("disabled notifier sent %d notifications", len(*got))
	}
	if n.Enabled() {
		t.Error("expected notifier to be disabled")
	}
}

func TestNotifier_SendErrorIsSwallowed(t *testing.T) {
	n := NewWithSender(Config{Enabled: true}, nil, func(string, string) error {
		return errors.New("no notification daemon")
	})
	n.NotifyBuildSuccess("Blog", 1, time.Millisecond)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{65 * time.Second, "1m5s"},
		{125 * time.Second, "2m5s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.duration); got != tt.expected {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.duration, got, tt.expected)
		}
	}
}
