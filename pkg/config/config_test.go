package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testCfg struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CFG_TEST_TOKEN", "s3cret")
	p := writeFile(t, "cfg.yaml", "name: demo\ntoken: ${CFG_TEST_TOKEN}\n")

	var cfg testCfg
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "demo" || cfg.Token != "s3cret" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg testCfg
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	def := writeFile(t, "default.yaml", "name: fallback\n")

	var cfg testCfg
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), def, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("name = %q, want fallback", cfg.Name)
	}
}

type rejectingCfg struct {
	Name string `yaml:"name"`
}

func (c *rejectingCfg) Validate() error {
	return os.ErrInvalid
}

func TestLoad_RunsValidator(t *testing.T) {
	p := writeFile(t, "cfg.yaml", "name: demo\n")

	var cfg rejectingCfg
	if err := Load(p, &cfg); err == nil {
		t.Fatal("validator rejection should surface as a load error")
	}
}
