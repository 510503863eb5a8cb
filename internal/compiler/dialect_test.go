package compiler

import (
	"os"
	"strings"
	"testing"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

func TestDialectForBinary(t *testing.T) {
	tests := []struct {
		bin  string
		want Dialect
	}{
		{"/usr/bin/clang", Clang},
		{"/usr/bin/clang++", Clang},
		{"/usr/bin/gcc", Clang},
		{`C:\Program Files\LLVM\bin\clang-cl.exe`, MSVC},
		{"clang-cl", MSVC},
		{"cl.exe", MSVC},
		{"CL.EXE", MSVC},
		{"c:/tools/cl", MSVC},
		{"/opt/clang/bin/clang-17", Clang},
	}

	for _, tt := range tests {
		if got := DialectForBinary(tt.bin); got != tt.want {
			t.Errorf("DialectForBinary(%q) = %v, want %v", tt.bin, got, tt.want)
		}
	}
}

func TestIntelliSenseMode(t *testing.T) {
	if got := Clang.IntelliSenseMode(); got != "clang-x64" {
		t.Errorf("Clang mode = %q", got)
	}
	if got := MSVC.IntelliSenseMode(); got != "msvc-x64" {
		t.Errorf("MSVC mode = %q", got)
	}
}

func TestLanguage(t *testing.T) {
	if C.String() != "c" || CPP.String() != "c++" {
		t.Errorf("Language strings = %q, %q", C.String(), CPP.String())
	}
	if C.DefaultStandard() != "c99" {
		t.Errorf("C default standard = %q", C.DefaultStandard())
	}
	if CPP.DefaultStandard() != "c++17" {
		t.Errorf("C++ default standard = %q", CPP.DefaultStandard())
	}
}

func TestProbeArgsClang(t *testing.T) {
	args := fspath.RenderAll(Clang.probeArgs(CPP, "-std=c++17"))
	want := []string{"-std=c++17", "-E", "-dD", "-Wp,-v", "-x", "c++", os.DevNull}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("probeArgs = %v, want %v", args, want)
	}

	// Without a std flag nothing is prepended.
	args = fspath.RenderAll(Clang.probeArgs(C, ""))
	if args[0] != "-E" {
		t.Errorf("probeArgs without std = %v", args)
	}
	if args[len(args)-2] != "c" {
		t.Errorf("language flag = %v", args)
	}
}

func TestProbeArgsMSVC(t *testing.T) {
	args := fspath.RenderAll(MSVC.probeArgs(C, ""))
	want := []string{"/TC", "-E", "-Xclang", "-dM", "-v", os.DevNull}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("probeArgs = %v, want %v", args, want)
	}

	args = fspath.RenderAll(MSVC.probeArgs(CPP, ""))
	if args[0] != "/TP" {
		t.Errorf("C++ language flag = %v", args)
	}
}

func TestStdFlag(t *testing.T) {
	if got := Clang.StdFlag("c++17"); got != "-std=c++17" {
		t.Errorf("Clang.StdFlag = %q", got)
	}
	if got := Clang.StdFlag(""); got != "" {
		t.Errorf("Clang.StdFlag(\"\") = %q", got)
	}
	// The MSVC probe takes no standard flag.
	if got := MSVC.StdFlag("c++17"); got != "" {
		t.Errorf("MSVC.StdFlag = %q", got)
	}
}
