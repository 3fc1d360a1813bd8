package browser

import "testing"

func TestVisibleText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain body text",
			html: `<html><body><p>Testing your page</p></body></html>`,
			want: "Testing your page",
		},
		{
			name: "head content excluded",
			html: `<html><head><title>Rich Results Test</title></head><body>TEST COMPLETE</body></html>`,
			want: "TEST COMPLETE",
		},
		{
			name: "script content skipped",
			html: `<body><script>var x = "Something went wrong";</script><p>All good</p></body>`,
			want: "All good",
		},
		{
			name: "style and noscript skipped",
			html: `<body><style>.err{color:red}</style><noscript>enable js</noscript>Done</body>`,
			want: "Done",
		},
		{
			name: "nested text joined with spaces",
			html: `<body><div>Something went <b>wrong</b></div><div>Dismiss</div></body>`,
			want: "Something went wrong Dismiss",
		},
		{
			name: "whitespace collapsed",
			html: "<body>\n\t<p>  View   Details\n</p>\n</body>",
			want: "View   Details",
		},
		{
			name: "empty document",
			html: "",
			want: "",
		},
		{
			name: "no body tag yields nothing",
			html: `<html><head><title>only a head</title></head></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := visibleText([]byte(tt.html))
			if got != tt.want {
				t.Errorf("visibleText() = %q, want %q", got, tt.want)
			}
		})
	}
}
