// ABOUTME: Tests for request assembly from the prompt file and git history
// ABOUTME: Covers prompt block extraction, the commits footer and git failures
package core

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "whole file", raw: "  explain the cache  \n", want: "explain the cache"},
		{name: "prompt block", raw: "title: x\nprompt: >\n  list the webhooks\n  and their events\n", want: "list the webhooks\n  and their events"},
		{name: "empty block falls back", raw: "prompt: >   \n", want: "prompt: >"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractQuery(tt.raw); got != tt.want {
				t.Errorf("ExtractQuery() = %q, want %q", got, tt.want)
			}
		})
	}

	long := ExtractQuery(strings.Repeat("ü", MaxQueryChars+10))
	if utf8.RuneCountInString(long) != MaxQueryChars {
		t.Errorf("query not capped: %d runes", utf8.RuneCountInString(long))
	}
}

func TestAskQuery(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "prompt.txt")

	q, err := AskQuery([]string{"where", "is", "auth?"}, promptFile)
	if err != nil || q != "where is auth?" {
		t.Errorf("AskQuery(args) = %q, %v", q, err)
	}

	if _, err := AskQuery(nil, promptFile); !errors.Is(err, ErrNoQuery) {
		t.Errorf("AskQuery() missing file error = %v, want ErrNoQuery", err)
	}

	if err := os.WriteFile(promptFile, []byte("prompt: > what does retry do"), 0644); err != nil {
		t.Fatal(err)
	}
	q, err = AskQuery([]string{"  "}, promptFile)
	if err != nil || q != "what does retry do" {
		t.Errorf("AskQuery(file) = %q, %v", q, err)
	}
}

type gitRunner struct {
	out string
	err error
	cmd string
	dir string
}

func (g *gitRunner) Run(ctx context.Context, dir, command string) (string, error) {
	g.cmd, g.dir = command, dir
	return g.out, g.err
}

func TestContextHydrator_UserRequest(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(promptFile, []byte("add caching"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &gitRunner{out: "abc123 2024-05-01 fix cache\n"}
	h := NewContextHydrator(runner, quietLogger())

	got, err := h.UserRequest(context.Background(), promptFile, "/repo", 20)
	if err != nil {
		t.Fatalf("UserRequest() error = %v", err)
	}
	want := "add caching\n\n---\nRecent commits:\nabc123 2024-05-01 fix cache"
	if got != want {
		t.Errorf("UserRequest() = %q, want %q", got, want)
	}
	if runner.dir != "/repo" || !strings.Contains(runner.cmd, "git log -n 20 --pretty=format:'%h %ad %s' --date=short") {
		t.Errorf("ran %q in %s", runner.cmd, runner.dir)
	}

	if _, err := h.UserRequest(context.Background(), filepath.Join(dir, "absent.txt"), "/repo", 20); err == nil {
		t.Error("UserRequest() should fail without a prompt file")
	}
}

func TestContextHydrator_GitFailureIsEmpty(t *testing.T) {
	h := NewContextHydrator(&gitRunner{out: "fatal: not a git repository", err: errors.New("exit status 128")}, quietLogger())
	if got := h.RecentCommits(context.Background(), "/tmp", 5); got != "" {
		t.Errorf("RecentCommits() = %q, want empty", got)
	}
	if got := h.RecentCommits(context.Background(), "/tmp", 0); got != "" {
		t.Errorf("RecentCommits(0) = %q, want empty", got)
	}
}

func TestContextHydrator_RealGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"-c", "user.email=t@example.com", "-c", "user.name=t", "commit", "-q", "--allow-empty", "-m", "first commit"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git unavailable: %v %s", err, out)
		}
	}

	got := NewContextHydrator(nil, quietLogger()).RecentCommits(context.Background(), repo, 3)
	if !strings.HasSuffix(got, " first commit") {
		t.Errorf("RecentCommits() = %q", got)
	}
}
