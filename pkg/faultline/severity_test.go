package faultline

import (
	"encoding/json"
	"testing"
)

func TestSeverity_Ordering(t *testing.T) {
	for i := 1; i < len(Severities); i++ {
		if Severities[i-1] >= Severities[i] {
			t.Errorf("%s should sort before %s", Severities[i-1], Severities[i])
		}
	}
}

func TestSeverity_Enabled(t *testing.T) {
	tests := []struct {
		level     Severity
		threshold Severity
		want      bool
	}{
		{SeverityDebug, SeverityWarn, false},
		{SeverityError, SeverityWarn, true},
		{SeverityWarn, SeverityWarn, true},
		{SeverityFatal, SeverityFatal, true},
		{SeverityTrace, SeverityDebug, false},
		{SeverityTrace, SeverityTrace, true},
	}
	for _, tt := range tests {
		if got := tt.level.Enabled(tt.threshold); got != tt.want {
			t.Errorf("%s.Enabled(%s) = %v, want %v", tt.level, tt.threshold, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"FATAL", SeverityFatal, true},
		{"error", SeverityError, true},
		{"Warning", SeverityWarn, true},
		{" info ", SeverityInfo, true},
		{"debug", SeverityDebug, true},
		{"trace", SeverityTrace, true},
		{"verbose", SeverityInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSeverity(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSeverity_StringUnknown(t *testing.T) {
	if got := Severity(42).String(); got != "SEVERITY(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestSeverity_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(SeverityWarn)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"WARN"` {
		t.Fatalf("Marshal = %s", data)
	}

	var s Severity
	if err := json.Unmarshal([]byte(`"trace"`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s != SeverityTrace {
		t.Errorf("Unmarshal = %v, want TRACE", s)
	}
	if err := json.Unmarshal([]byte(`"loud"`), &s); err == nil {
		t.Error("Unmarshal of unknown level should fail")
	}
}
