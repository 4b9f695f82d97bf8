package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
terminal:
  executable: C:\Terminal\terminal64.exe
  base_config: C:\Terminal\config\common.ini
  work_dir: C:\optimiser\work
  parameters_dir: C:\Terminal\MQL5\Profiles\Tester
  report_file: C:\Terminal\MQL5\Files\Reports\Report.xml
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 8080 || c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("server defaults: %+v", c.Server)
	}
	if c.Optimiser.Variant != "walkforward" || !c.Optimiser.ShutdownOnFinish || c.Optimiser.SessionTTL != 168*time.Hour {
		t.Fatalf("optimiser defaults: %+v", c.Optimiser)
	}
	if c.Terminal.Encoding != "utf-16le" || c.Logger.Level != "info" || c.Kafka.Topic != "optimiser.events" {
		t.Fatalf("defaults not applied: %+v %+v", c.Terminal, c.Logger)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal + `
server:
  port: 9090
optimiser:
  shutdown_on_finish: false
  replace_dates: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 9090 || c.Optimiser.ShutdownOnFinish || !c.Optimiser.ReplaceDates {
		t.Fatalf("overrides lost: %+v %+v", c.Server, c.Optimiser)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing terminal", "environment: dev\n", "Executable"},
		{"queue without redis", minimal + "queue:\n  enabled: true\n", "queue.enabled"},
		{"kafka without brokers", minimal + "kafka:\n  enabled: true\n", "kafka.brokers"},
		{"bad encoding", minimal + "  encoding: latin1\n", "terminal.encoding"},
		{"bad log level", minimal + "logger:\n  level: loud\n", "Level"},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.yaml))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got %v, want error mentioning %q", tc.name, err, tc.want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"OPTIMISER_TERMINAL": "/opt/terminal",
		"KAFKA_BROKERS":      "a:9092, b:9092,",
		"REDIS_ADDR":         "redis:6379",
		"HTTP_PORT":          "7000",
		"REDIS_DB":           "3",
	}
	err = c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Terminal.Executable != "/opt/terminal" || c.Redis.Addr != "redis:6379" || c.Server.Port != 7000 {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.Redis.DB != 3 {
		t.Fatalf("redis db %d", c.Redis.DB)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("brokers %v", c.Kafka.Brokers)
	}

	env["HTTP_PORT"] = "x"
	if err := c.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err == nil {
		t.Fatalf("expected bad port error")
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ClickHouse.Host != "ch.internal" {
		t.Fatalf("host %q", c.ClickHouse.Host)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if c.Server.RateBurst != 10 || c.Terminal.Timeout != 12*time.Hour {
		t.Fatalf("unexpected values: %+v", c.Server)
	}
}
