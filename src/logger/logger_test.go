package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "quiet drops debug", verbose: false, wantDebug: false},
		{name: "verbose keeps debug", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			log := &ConsoleLogger{Out: &out, Err: &errOut, Verbose: tt.verbose}

			log.Info("version %s queued", "v-1")
			log.Debug("poll %d", 3)
			log.Error("fetch failed: %v", "boom")

			if !strings.Contains(out.String(), "[INFO] version v-1 queued") {
				t.Errorf("stdout missing info line: %q", out.String())
			}
			if got := strings.Contains(out.String(), "[DEBUG] poll 3"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(errOut.String(), "[ERROR] fetch failed: boom") {
				t.Errorf("stderr missing error line: %q", errOut.String())
			}
			if strings.Contains(out.String(), "[ERROR]") {
				t.Error("error line should not go to stdout")
			}
		})
	}
}

func TestSilentLogger_ImplementsLogger(t *testing.T) {
	var _ Logger = NewSilentLogger()
	var _ Logger = NewStderrLogger()
	var _ Logger = NewConsoleLogger(false)
}
