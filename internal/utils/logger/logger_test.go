package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: " warn ", want: zapcore.WarnLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerNeverNil(t *testing.T) {
	if Logger() == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWriteListFetchedToFile(t *testing.T) {
	prevPath := ReportPath
	ReportPath = t.TempDir()
	t.Cleanup(func() { ReportPath = prevPath })

	AddReportItem("postgis-3.1.2.tar.gz sha256=ok")
	AddReportItem("postgis-3.0.1.tar.gz sha256=ok")

	path, err := WriteListFetchedToFile()
	if err != nil {
		t.Fatalf("WriteListFetchedToFile failed: %v", err)
	}
	if filepath.Base(path) != "fetchurl-FetchedArchives.txt" {
		t.Errorf("unexpected report name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "postgis-3.0.1.tar.gz") {
		t.Errorf("report missing entry, got:\n%s", data)
	}
	if len(GlobalStringListReport.Items) != 0 {
		t.Errorf("expected report items to be reset, got %d", len(GlobalStringListReport.Items))
	}
}
