package utils

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mdobak/go-xerrors"
)

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("PPG_TEST_STRING", "")
	if got := GetEnv("PPG_TEST_STRING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("PPG_TEST_FLOAT", "not-a-number")
	if got := GetEnvFloat("PPG_TEST_FLOAT", 1.5); got != 1.5 {
		t.Fatalf("expected fallback 1.5 for malformed float, got %v", got)
	}

	t.Setenv("PPG_TEST_INT", "42")
	if got := GetEnvInt("PPG_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestGenerateSessionIDFormat(t *testing.T) {
	t.Parallel()

	id := GenerateSessionID()
	if !strings.HasPrefix(id, "ppg_") || len(id) != len("ppg_")+8 {
		t.Fatalf("unexpected session id %q", id)
	}
}

func TestReplaceAttrExpandsErrors(t *testing.T) {
	t.Parallel()

	attr := replaceAttr(nil, slog.Any("error", xerrors.New(errors.New("boom"))))
	if attr.Value.Kind() != slog.KindGroup {
		t.Fatalf("expected error attribute to become a group, got %v", attr.Value.Kind())
	}

	var sawMsg, sawTrace bool
	for _, a := range attr.Value.Group() {
		switch a.Key {
		case "msg":
			sawMsg = strings.Contains(a.Value.String(), "boom")
		case "trace":
			sawTrace = true
		}
	}
	if !sawMsg || !sawTrace {
		t.Fatalf("expected msg and trace in group (msg=%v trace=%v)", sawMsg, sawTrace)
	}
}
