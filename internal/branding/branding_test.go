package branding

import "testing"

func TestEnvVar(t *testing.T) {
	if got := EnvVar("server_dir"); got != "ADDONCTL_SERVER_DIR" {
		t.Errorf("EnvVar(server_dir) = %q, want %q", got, "ADDONCTL_SERVER_DIR")
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(""); got != "addonctl" {
		t.Errorf("UserAgent(\"\") = %q, want %q", got, "addonctl")
	}
	if got := UserAgent("1.2.0"); got != "addonctl/1.2.0" {
		t.Errorf("UserAgent(1.2.0) = %q, want %q", got, "addonctl/1.2.0")
	}
}
