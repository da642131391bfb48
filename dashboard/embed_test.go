package dashboard

import (
	"io/fs"
	"strings"
	"testing"
)

func TestAssets_IndexPresent(t *testing.T) {
	content, err := fs.ReadFile(Assets, "assets/index.html")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	// the server substitutes the title and the page drives these endpoints
	for _, want := range []string{"{{.Title}}", "/api/sse", "/api/dispatch"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}
