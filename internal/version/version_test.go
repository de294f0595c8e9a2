package version

import "testing"

func TestGetAndString(t *testing.T) {
	info := Get()
	if info.Version != Version || info.GitSHA != GitSHA || info.BuildTime != BuildTime {
		t.Errorf("Get() = %+v, want package values", info)
	}
	if got, want := String(), Version+" ("+GitSHA+", built "+BuildTime+")"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
