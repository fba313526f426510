package core

import "testing"

func TestResolveProject(t *testing.T) {
	tests := []struct {
		selector string
		want     string
		wantErr  bool
	}{
		{selector: "requests", want: "requests"},
		{selector: "Typing.Extensions", want: "typing-extensions"},
		{selector: "pkg:pypi/requests", want: "requests"},
		{selector: "pkg:pypi/Django@4.2", want: "django"},
		{selector: "pkg:npm/left-pad", wantErr: true},
		{selector: "pkg:not a purl", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ResolveProject(tt.selector)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveProject(%q): expected error, got %q", tt.selector, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveProject(%q) failed: %v", tt.selector, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveProject(%q) = %q, want %q", tt.selector, got, tt.want)
		}
	}
}
