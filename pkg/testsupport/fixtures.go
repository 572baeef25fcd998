// Package testsupport holds helpers shared by package tests. Helpers fail the
// test on error to keep test bodies concise.
package testsupport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
)

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// WriteFixture writes content to dir/name and returns the path.
func WriteFixture(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// RenderString renders inst with opts and returns the markup.
func RenderString(t *testing.T, inst *form.Instance, opts render.Options) string {
	t.Helper()

	var buf bytes.Buffer
	if err := inst.Render(Context(), &buf, opts); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

// AssertContains fails unless got contains every fragment.
func AssertContains(t *testing.T, got string, fragments ...string) {
	t.Helper()

	for _, fragment := range fragments {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, got)
		}
	}
}

// AssertNotContains fails if got contains any fragment.
func AssertNotContains(t *testing.T, got string, fragments ...string) {
	t.Helper()

	for _, fragment := range fragments {
		if strings.Contains(got, fragment) {
			t.Fatalf("unexpected %q in output:\n%s", fragment, got)
		}
	}
}
