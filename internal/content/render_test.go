package content

import (
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()
	uri := "https://cdn.example/slides.pdf"

	out, err := r.Render([]Block{
		Text{Text: "# Week 1"},
		Image{Source: RemoteImage("https://cdn.example/a.png"), WidthPx: 10, HeightPx: 20},
		ImageGroup{URIs: []string{"g1"}, Inline: true},
		File{Name: "slides.pdf", URI: &uri},
		File{Name: "pending.txt"},
		Text{},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	html := string(out)
	for _, want := range []string{
		"<h1>Week 1</h1>",
		`<img src="https://cdn.example/a.png" width="10" height="20" />`,
		`<div class="gallery inline"><img src="g1" /></div>`,
		`<a href="https://cdn.example/slides.pdf">slides.pdf</a>`,
		`attachment pending">pending.txt`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q\n%s", want, html)
		}
	}
}

func TestRenderer_EscapesRawHTML(t *testing.T) {
	out, err := NewRenderer().Render([]Block{Text{Text: "<script>alert(1)</script>"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Errorf("raw HTML was not escaped: %s", out)
	}
}

func TestRenderer_DropsScriptURLs(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  string
	}{
		{"image", Image{Source: RemoteImage("javascript:alert(1)"), WidthPx: 1, HeightPx: 1}, ""},
		{"gallery", ImageGroup{URIs: []string{" JavaScript:alert(1)", "ok.png"}}, `<div class="gallery"><img src="ok.png" /></div>`},
		{"file", File{Name: "x.pdf", URI: ptr("java\tscript:alert(1)")}, `<p class="attachment">x.pdf</p>`},
		{"vbscript", File{Name: "y.pdf", URI: ptr("vbscript:msgbox")}, `<p class="attachment">y.pdf</p>`},
		{"data image", ImageGroup{URIs: []string{"data:image/png;base64,AAAA"}}, `<img src="data:image/png;base64,AAAA" />`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewRenderer().Render([]Block{tt.block})
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			got := string(out)
			if strings.Contains(strings.ToLower(got), "script:") {
				t.Errorf("rendered a script URL: %s", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Render() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func ptr(s string) *string { return &s }
