package session

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    Target
		wantErr bool
	}{
		{"device", "system-0", Target{Kind: KindDevice, Index: 0}, false},
		{"device high index", "system-42", Target{Kind: KindDevice, Index: 42}, false},
		{"stream", "1234", Target{Kind: KindStream, Index: 1234}, false},
		{"stream zero", "0", Target{Kind: KindStream, Index: 0}, false},
		{"empty", "", Target{}, true},
		{"prefix only", "system-", Target{}, true},
		{"device not numeric", "system-sounds", Target{}, true},
		{"stream not numeric", "chrome", Target{}, true},
		{"negative", "-1", Target{}, true},
		{"plus sign", "+5", Target{}, true},
		{"space", " 5", Target{}, true},
		{"overflow", "4294967296", Target{}, true},
		{"double prefix", "system-system-1", Target{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrResolution) {
					t.Errorf("ParseID(%q) error = %v, want ErrResolution", tt.id, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestTargetIDRoundTrip(t *testing.T) {
	for _, target := range []Target{
		{Kind: KindDevice, Index: 0},
		{Kind: KindDevice, Index: 7},
		{Kind: KindStream, Index: 0},
		{Kind: KindStream, Index: 999999},
	} {
		got, err := ParseID(target.ID())
		if err != nil {
			t.Fatalf("ParseID(%q): %v", target.ID(), err)
		}
		if got != target {
			t.Errorf("ParseID(%q) = %+v, want %+v", target.ID(), got, target)
		}
	}
}

func TestSubspacesAreDisjoint(t *testing.T) {
	for i := uint32(0); i < 1000; i++ {
		dev, stream := DeviceID(i), StreamID(i)
		if !IsDeviceID(dev) {
			t.Fatalf("%q not recognised as device id", dev)
		}
		if IsDeviceID(stream) {
			t.Fatalf("%q recognised as device id", stream)
		}
		if dev == stream {
			t.Fatalf("device and stream id collide for index %d", i)
		}
	}
}

func TestValidatePercent(t *testing.T) {
	tests := []struct {
		percent float64
		wantErr bool
	}{
		{0, false},
		{100, false},
		{50.5, false},
		{-0.01, true},
		{100.01, true},
		{150, true},
		{math.NaN(), true},
		{math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.percent), func(t *testing.T) {
			err := ValidatePercent(tt.percent)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePercent(%v) error = %v, wantErr %v", tt.percent, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrRangeViolation) {
				t.Errorf("ValidatePercent(%v) error = %v, want ErrRangeViolation", tt.percent, err)
			}
		})
	}
}

func TestScaleConversions(t *testing.T) {
	const paNorm = 0x10000

	if got := ToNative(100, paNorm); got != paNorm {
		t.Errorf("ToNative(100) = %v, want %v", got, paNorm)
	}
	if got := ToNative(0, paNorm); got != 0 {
		t.Errorf("ToNative(0) = %v, want 0", got)
	}
	if got := ToPercent(paNorm*0.8, paNorm); got != 80 {
		t.Errorf("ToPercent(0.8 norm) = %v, want 80", got)
	}
	if got := ToPercent(0.5, 1.0); got != 50 {
		t.Errorf("ToPercent(0.5, 1.0) = %v, want 50", got)
	}
	if got := ToPercent(1, 0); got != 0 {
		t.Errorf("ToPercent with zero full scale = %v, want 0", got)
	}

	// set-then-read stays within one native unit for every integer percent
	for p := 0; p <= 100; p++ {
		native := ToNative(float64(p), paNorm)
		if back := ToPercent(native, paNorm); back != float64(p) {
			t.Errorf("percent %d round-tripped to %v", p, back)
		}
	}
}

func TestResolveName(t *testing.T) {
	tests := []struct {
		name string
		src  NameSources
		want string
	}{
		{"declared wins", NameSources{Declared: "Firefox", ProcessName: "firefox-bin", ExePath: "/usr/lib/firefox/firefox"}, "Firefox"},
		{"process name", NameSources{ProcessName: "spotify", ExePath: "/opt/spotify/spotify"}, "spotify"},
		{"exe basename unix", NameSources{ExePath: "/usr/bin/mpv"}, "mpv"},
		{"exe basename windows", NameSources{ExePath: `C:\Program Files\Discord\Discord.exe`}, "Discord"},
		{"exe bare", NameSources{ExePath: "chrome.exe"}, "chrome"},
		{"unknown declared ignored", NameSources{Declared: "Unknown", ExePath: "vlc.exe"}, "vlc"},
		{"resource reference ignored", NameSources{Declared: `@%SystemRoot%\System32\AudioSrv.Dll,-202`, ExePath: "svchost.exe"}, "svchost"},
		{"whitespace ignored", NameSources{Declared: "  ", ProcessName: "\t"}, UnknownName},
		{"nothing", NameSources{}, UnknownName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveName(tt.src); got != tt.want {
				t.Errorf("ResolveName(%+v) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("dial: %w", ErrConnectUnavailable), "connect_unavailable"},
		{fmt.Errorf("stage: %w", ErrQueryTimeout), "query_timeout"},
		{ErrResolution, "resolution_failure"},
		{ErrRangeViolation, "range_violation"},
		{errors.New("boom"), "backend_error"},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
