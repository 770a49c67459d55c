package logger

import "testing"

func TestBuild(t *testing.T) {
	for _, env := range []string{"test", "production", "development", ""} {
		t.Run("env_"+env, func(t *testing.T) {
			if build(env) == nil {
				t.Fatal("expected a logger")
			}
		})
	}
}

func TestNamed(t *testing.T) {
	Init("test")
	if Named("sweep") == nil {
		t.Fatal("expected a named logger")
	}
}
