package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    logrus.Level
		wantErr bool
	}{
		{"default is info", Options{}, logrus.InfoLevel, false},
		{"explicit warn", Options{Level: "warn"}, logrus.WarnLevel, false},
		{"verbose raises to debug", Options{Level: "warn", Verbose: true}, logrus.DebugLevel, false},
		{"verbose keeps trace", Options{Level: "trace", Verbose: true}, logrus.TraceLevel, false},
		{"bad level", Options{Level: "loud"}, 0, true},
		{"bad format", Options{Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && logger.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.WithField("stage", "extract").Info("calling capability")

	out := buf.String()
	if !strings.Contains(out, `"stage":"extract"`) {
		t.Errorf("expected JSON field in output, got %q", out)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("OrDiscard should return the given logger")
	}
}
