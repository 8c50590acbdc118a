package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/testutil/fakeapi"
)

type harness struct {
	t       *testing.T
	backend *fakeapi.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := fakeapi.New(t)
	t.Setenv("PORTAL_CONFIG", "")
	t.Setenv("SESSION_BACKEND", "file")
	t.Setenv("SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("FRA_API_BASE", "http://127.0.0.1:1/api")
	return &harness{t: t, backend: backend}
}

// run executes one fractl invocation against the fake backend. Every call
// builds a fresh root command, so state only survives through the session file.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(append([]string{"--api-base", h.backend.URL()}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("fractl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestLoginStatusLogout(t *testing.T) {
	h := newHarness(t)

	if out := h.mustRun("status"); !strings.Contains(out, "Not logged in") {
		t.Fatalf("unexpected status before login: %q", out)
	}

	out := h.mustRun("login", "-u", "officer", "-p", "officer123")
	if !strings.Contains(out, "Logged in as officer (officer)") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out = h.mustRun("status")
	for _, want := range []string{"officer", "Refresh token:", "true"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output %q missing %q", out, want)
		}
	}

	h.mustRun("logout")
	if out := h.mustRun("status"); !strings.Contains(out, "Not logged in") {
		t.Fatalf("unexpected status after logout: %q", out)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run("login", "-u", "officer", "-p", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if _, err := h.run("login", "-u", "officer"); err == nil {
		t.Fatal("expected error without password")
	}
}

func TestHealthIsAnonymous(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("health")
	if strings.TrimSpace(out) != "ok (test)" {
		t.Fatalf("unexpected health output: %q", out)
	}
}

func TestClaimsRequiresSession(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run("claims"); err == nil {
		t.Fatal("expected error without a session")
	}

	h.mustRun("login", "-u", "admin", "-p", "admin123")
	out := h.mustRun("claims", "--limit", "3")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "CLAIM") {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestScoreAndBatch(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login", "-u", "officer", "-p", "officer123")

	out := h.mustRun("score", "--claim-id", "CLM-9", "--area-ha", "3.5")
	if !strings.Contains(out, "CLM-9") || !strings.Contains(out, "Explanation:") {
		t.Errorf("unexpected rules score output: %q", out)
	}

	out = h.mustRun("score", "--ml")
	if !strings.Contains(out, "CLM-2001") || !strings.Contains(out, "Probability:") {
		t.Errorf("unexpected ml score output: %q", out)
	}

	out = h.mustRun("batch", "--limit", "5")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header and 5 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "1 ") {
		t.Errorf("expected ranked rows, got %q", lines[1])
	}
}

func TestCommandsSurviveExpiredAccessToken(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login", "-u", "officer", "-p", "officer123")
	h.backend.ExpireAccessTokens()

	out := h.mustRun("dashboard")
	for _, want := range []string{"Total:", "By state", "Area (ha)", "10+"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard output missing %q:\n%s", want, out)
		}
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Errorf("expected one refresh, got %d", got)
	}
}

func TestDetail(t *testing.T) {
	p := 0.12345
	if got := detail(models.ScoreResult{Prob: &p, Explanation: "ignored"}); got != "0.123" {
		t.Errorf("detail = %q", got)
	}
	if got := detail(models.ScoreResult{Explanation: "docs complete"}); got != "docs complete" {
		t.Errorf("detail = %q", got)
	}
}
