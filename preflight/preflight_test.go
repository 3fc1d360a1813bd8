package preflight

import "testing"

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantTitle  string
		wantBlocks int
	}{
		{
			name:       "title and one block",
			html:       `<html><head><title>Recipe: Pancakes</title><script type="application/ld+json">{"@type":"Recipe"}</script></head><body></body></html>`,
			wantTitle:  "Recipe: Pancakes",
			wantBlocks: 1,
		},
		{
			name: "multiple blocks counted",
			html: `<html><head><title>Store</title></head><body>` +
				`<script type="application/ld+json">{"@type":"Product"}</script>` +
				`<script type="application/ld+json">{"@type":"Review"}</script>` +
				`<script type="application/ld+json">{"@type":"BreadcrumbList"}</script>` +
				`</body></html>`,
			wantTitle:  "Store",
			wantBlocks: 3,
		},
		{
			name:       "plain scripts not counted",
			html:       `<html><head><title>App</title><script>window.x=1</script></head><body></body></html>`,
			wantTitle:  "App",
			wantBlocks: 0,
		},
		{
			name:       "no title no blocks",
			html:       `<html><body><p>hello</p></body></html>`,
			wantTitle:  "",
			wantBlocks: 0,
		},
		{
			name:       "title whitespace trimmed",
			html:       "<html><head><title>\n  Spaced Out  \n</title></head><body></body></html>",
			wantTitle:  "Spaced Out",
			wantBlocks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, blocks := parseTarget([]byte(tt.html))
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if blocks != tt.wantBlocks {
				t.Errorf("blocks = %d, want %d", blocks, tt.wantBlocks)
			}
		})
	}
}
