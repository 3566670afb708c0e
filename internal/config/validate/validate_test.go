package validate

import "testing"

func TestValidateBuildContextJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "minimal valid context",
			data: `{"package": "postgis", "version": "3.1.2", "prefix": "/opt/postgis",
				"dependencies": {"postgresql": {"prefix": "/opt/pg", "version": "13.2"}}}`,
		},
		{
			name: "numeric versions accepted",
			data: `{"package": "postgis", "version": 3.1, "prefix": "/opt/postgis",
				"dependencies": {"proj": {"prefix": "/opt/proj", "version": 8}}}`,
		},
		{
			name: "variants are booleans",
			data: `{"package": "postgis", "version": "3.1.2", "prefix": "/p",
				"variants": {"gui": true}, "dependencies": {"pcre": {"prefix": "/opt/pcre"}}}`,
		},
		{
			name:    "missing prefix",
			data:    `{"package": "postgis", "version": "3.1.2", "dependencies": {"pcre": {"prefix": "/x"}}}`,
			wantErr: true,
		},
		{
			name: "non-boolean variant",
			data: `{"package": "postgis", "version": "3.1.2", "prefix": "/p",
				"variants": {"gui": "on"}, "dependencies": {"pcre": {"prefix": "/x"}}}`,
			wantErr: true,
		},
		{
			name:    "dependency without prefix",
			data:    `{"package": "postgis", "version": "3.1.2", "prefix": "/p", "dependencies": {"pcre": {}}}`,
			wantErr: true,
		},
		{
			name:    "unknown top-level field",
			data:    `{"package": "postgis", "version": "3.1.2", "prefix": "/p", "dependencies": {"pcre": {"prefix": "/x"}}, "extra": 1}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			data:    `package: postgis`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBuildContextJSON([]byte(tt.data))
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateConfigJSON(t *testing.T) {
	if err := ValidateConfigJSON([]byte(`{"workers": 8, "logging": {"level": "debug"}}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateConfigJSON([]byte(`{"workers": 0}`)); err == nil {
		t.Fatal("expected error for zero workers")
	}
	if err := ValidateConfigJSON([]byte(`{"logging": {"level": "loud"}}`)); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
