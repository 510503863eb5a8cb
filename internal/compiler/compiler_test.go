package compiler

import (
	"testing"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

func TestResolveBinary(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"/usr/bin/clang", "/usr/bin/clang"},
		{"ccache /usr/bin/clang", "/usr/bin/clang"},
		{"sccache clang-cl.exe", "clang-cl.exe"},
		{"icecc ccache /opt/clang/bin/clang++", "/opt/clang/bin/clang++"},
		{"distcc cc", "cc"},
		{"/usr/lib/ccache/clang", "/usr/lib/ccache/clang"},
		{`C:/mozilla-build/clang/bin/clang-cl.exe`, `C:/mozilla-build/clang/bin/clang-cl.exe`},
	}

	for _, tt := range tests {
		got, err := ResolveBinary(tt.value)
		if err != nil {
			t.Errorf("ResolveBinary(%q) failed: %v", tt.value, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveBinary(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestResolveBinaryOnlyLaunchers(t *testing.T) {
	if _, err := ResolveBinary("ccache"); err == nil {
		t.Error("Expected an error when the value is only a launcher")
	}
	if _, err := ResolveBinary(""); err == nil {
		t.Error("Expected an error for an empty value")
	}
}

func TestNewSettings(t *testing.T) {
	s := NewSettings(Clang, CPP, "", "", fspath.Path{})
	if s.IntelliSenseMode != "clang-x64" {
		t.Errorf("IntelliSenseMode = %q", s.IntelliSenseMode)
	}
	if s.Standard != "c++17" {
		t.Errorf("Standard = %q, want the language default", s.Standard)
	}

	s = NewSettings(MSVC, C, "c11", "10.0.19041.0", fspath.Path{})
	if s.IntelliSenseMode != "msvc-x64" {
		t.Errorf("IntelliSenseMode = %q", s.IntelliSenseMode)
	}
	if s.Standard != "c11" {
		t.Errorf("Standard = %q, override should win", s.Standard)
	}
	if s.WindowsSDKVersion != "10.0.19041.0" {
		t.Errorf("WindowsSDKVersion = %q", s.WindowsSDKVersion)
	}
}

func TestConfigureStandardFallback(t *testing.T) {
	c := &Compiler{
		Bin:      "/usr/bin/clang++",
		Lang:     CPP,
		Dialect:  Clang,
		Settings: NewSettings(Clang, CPP, "", "", fspath.Path{}),
		Defaults: &Defaults{Defines: map[string]string{"__cplusplus": "201703L"}},
	}

	cfg := c.Configure(&FileConfig{Defines: map[string]string{}})
	if cfg.Standard != "c++17" {
		t.Errorf("Standard = %q, want settings fallback", cfg.Standard)
	}

	cfg = c.Configure(&FileConfig{Defines: map[string]string{}, Standard: "gnu++20"})
	if cfg.Standard != "gnu++20" {
		t.Errorf("Standard = %q, command line should win", cfg.Standard)
	}
}
