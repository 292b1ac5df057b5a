package fields

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseRatio(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		toBe      int
		total     int
		delivered int
	}{
		{"normal ratio", "123/456", 123, 456, 333},
		{"bad left side", "abc/456", 0, 456, 456},
		{"bad right side", "123/xyz", 123, 0, 0},
		{"to_be exceeds total clamps at zero", "10/5", 10, 5, 0},
		{"empty cell", "", 0, 0, 0},
		{"no separator", "123", 123, 0, 0},
		{"float formatted export", "12.0/40.0", 12, 40, 28},
		{"whitespace padding", " 50 / 100 ", 50, 100, 50},
		{"only separator", "/", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toBe, total, delivered := ParseRatio(tt.input)
			if toBe != tt.toBe || total != tt.total || delivered != tt.delivered {
				t.Errorf("ParseRatio(%q) = (%d, %d, %d), want (%d, %d, %d)",
					tt.input, toBe, total, delivered, tt.toBe, tt.total, tt.delivered)
			}
		})
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Float
	}{
		{"percent suffix", "87.5%", Of(87.5)},
		{"no suffix", "87.5", Of(87.5)},
		{"integer", "90%", Of(90)},
		{"zero is a value, not missing", "0%", Of(0)},
		{"empty cell", "", Missing},
		{"whitespace only", "   ", Missing},
		{"not a number", "N/A", Missing},
		{"bare percent sign", "%", Missing},
		{"padded", "  40% ", Of(40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePercent(tt.input)
			if got != tt.want {
				t.Errorf("ParsePercent(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Float
	}{
		{"one hour two minutes three seconds", "01:02:03", Of(1 + 2.0/60 + 3.0/3600)},
		{"four hours", "04:00:00", Of(4)},
		{"ten minutes", "00:10:00", Of(10.0 / 60)},
		{"zero", "00:00:00", Of(0)},
		{"no separators", "bad", Missing},
		{"two components", "01:02", Missing},
		{"four components", "01:02:03:04", Missing},
		{"non-integer component", "01:xx:03", Missing},
		{"fractional seconds rejected", "01:02:03.5", Missing},
		{"empty cell", "", Missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHours(tt.input)
			if got.Valid != tt.want.Valid {
				t.Fatalf("ParseHours(%q).Valid = %v, want %v", tt.input, got.Valid, tt.want.Valid)
			}
			if got.Valid && math.Abs(got.Value-tt.want.Value) > 1e-9 {
				t.Errorf("ParseHours(%q) = %v, want %v", tt.input, got.Value, tt.want.Value)
			}
		})
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		name  string
		input Float
		want  string
	}{
		{"round trip of 01:02:03", ParseHours("01:02:03"), "1h 2m 3s"},
		{"whole hours", Of(4), "4h 0m 0s"},
		{"rounds to nearest second", Of(10.0 / 60), "0h 10m 0s"},
		{"missing", Missing, "N/A"},
		{"negative clamps to zero", Of(-2.5), "0h 0m 0s"},
		{"zero", Of(0), "0h 0m 0s"},
		{"just under a minute", Of(59.6 / 3600), "0h 1m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatHours(tt.input); got != tt.want {
				t.Errorf("FormatHours(%+v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloatJSON(t *testing.T) {
	type payload struct {
		Completion Float `json:"completion"`
	}

	out, err := json.Marshal(payload{Completion: Of(87.5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"completion":87.5}` {
		t.Errorf("present value marshalled as %s", out)
	}

	out, err = json.Marshal(payload{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"completion":null}` {
		t.Errorf("missing value marshalled as %s", out)
	}

	var in payload
	if err := json.Unmarshal([]byte(`{"completion":null}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Completion.Valid {
		t.Error("null should decode as missing")
	}
	if err := json.Unmarshal([]byte(`{"completion":40}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.Completion.Valid || in.Completion.Value != 40 {
		t.Errorf("number decoded as %+v", in.Completion)
	}
}
