package gcp

import "testing"

func TestClientOptionsFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		jsonEnv  string
		fileEnv  string
		wantOpts int
	}{
		{"none", "", "", 0},
		{"inline json", `{"type":"service_account"}`, "", 1},
		{"file", "", "/etc/gcp/key.json", 1},
		{"json wins", `{"type":"service_account"}`, "/etc/gcp/key.json", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", tt.jsonEnv)
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", tt.fileEnv)
			if got := len(ClientOptionsFromEnv()); got != tt.wantOpts {
				t.Errorf("len(ClientOptionsFromEnv()) = %d, want %d", got, tt.wantOpts)
			}
		})
	}
}
