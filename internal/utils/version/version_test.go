package version

import "testing"

func TestCanonical(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "8", want: "v8"},
		{in: "3.1.2", want: "v3.1.2"},
		{in: "v13.2", want: "v13.2"},
		{in: "2.24.32.1", want: "v2.24.32"},
		{in: "", wantErr: true},
		{in: "3.x", wantErr: true},
		{in: "3..1", wantErr: true},
		{in: "03.1", wantErr: true},
		{in: "3.1.1.x", wantErr: true},
		{in: "3.1.1.01", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Canonical(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Canonical(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Canonical(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"3.1.2", "3.1.1", 1},
		{"3.1.1", "3.1.1", 0},
		{"2.5.3", "3.0.0", -1},
		{"8", "8.0.0", 0},
		{"7.2.1", "8", -1},
		{"10", "9.9", 1},
		{"3.1.1.5", "3.1.1.1", 1},
		{"3.1.1.1", "3.1.1.10", -1},
		{"3.1.1.0", "3.1.1", 0},
		{"3.1.1.2", "3.1.1", 1},
		{"2.24.32.1.1", "2.24.32.1", 1},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Compare(%q, %q): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		v, rng string
		want   bool
	}{
		{"3.1.1", ":3.1.1", true},
		{"3.1.2", ":3.1.1", false},
		{"3.0.0", ":3.1.1", true},
		{"3.1.1.4", ":3.1.1", true},
		{"3.1.1.5", ":3.1.1.1", false},
		{"3.1.1.1", ":3.1.1.1", true},
		{"3.1.1.0", ":3.1.1.1", true},
		{"3.1.1.5", "3.1.1.2:", true},
		{"3.1.1.1", "3.1.1.2:", false},
		{"8", "8:", true},
		{"8.0.1", "8:", true},
		{"7.2.1", "8:", false},
		{"9.1", "8:", true},
		{"2.24.32", ":2.24.32", true},
		{"2.24.33", ":2.24.32", false},
		{"3.0.1", "3.0", true},
		{"3.1.0", "3.0", false},
		{"3.0", "2.5:3.0", true},
		{"2.4", "2.5:3.0", false},
		{"5", "", true},
	}
	for _, tt := range tests {
		got, err := Satisfies(tt.v, tt.rng)
		if err != nil {
			t.Fatalf("Satisfies(%q, %q): %v", tt.v, tt.rng, err)
		}
		if got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.v, tt.rng, got, tt.want)
		}
	}
}

func TestSatisfiesRejectsMalformed(t *testing.T) {
	if _, err := Satisfies("abc", "8:"); err == nil {
		t.Error("expected error for malformed version")
	}
	if _, err := Satisfies("8", "x.y"); err == nil {
		t.Error("expected error for malformed range")
	}
	if MustSatisfy("abc", "8:") {
		t.Error("MustSatisfy should treat malformed input as false")
	}
}

func FuzzSatisfies(f *testing.F) {
	f.Add("3.1.1", ":3.1.1")
	f.Add("8", "8:")
	f.Add("", ":")
	f.Add("1.2.3.4.5", "1:2")

	f.Fuzz(func(t *testing.T, v, rng string) {
		ok, err := Satisfies(v, rng)
		if err != nil && ok {
			t.Fatalf("Satisfies(%q, %q) returned true with error %v", v, rng, err)
		}
	})
}
