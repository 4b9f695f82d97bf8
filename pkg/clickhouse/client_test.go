package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

func TestBuildOptionsDefaults(t *testing.T) {
	o, p := buildOptions(Endpoint{Host: "db"}, nil)
	if o.Addr[0] != "db:9000" || o.Auth.Database != "default" {
		t.Fatalf("unexpected endpoint %v %q", o.Addr, o.Auth.Database)
	}
	if p.maxOpen != 4 || p.maxIdle != 2 {
		t.Fatalf("unexpected pool %+v", p)
	}
	if len(o.Settings) != 0 {
		t.Fatalf("expected no settings, got %v", o.Settings)
	}
}

func TestBuildOptionsApplied(t *testing.T) {
	o, p := buildOptions(Endpoint{Host: "db", Port: 8123, Database: "wfo"}, []Option{
		WithHTTP(true),
		WithPool(8, 4, time.Hour),
		WithTimeouts(time.Second, 0),
		WithAsyncInsert(true, true),
		WithMaxExecutionTime(90 * time.Second),
		WithMaxExecutionTime(500 * time.Millisecond),
	})
	if o.Protocol != ch.HTTP || o.Addr[0] != "db:8123" {
		t.Fatalf("unexpected transport %v %v", o.Protocol, o.Addr)
	}
	if o.DialTimeout != time.Second || o.ReadTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts %v %v", o.DialTimeout, o.ReadTimeout)
	}
	if p.maxOpen != 8 || p.lifetime != time.Hour {
		t.Fatalf("unexpected pool %+v", p)
	}
	if o.Settings["async_insert"] != 1 || o.Settings["wait_for_async_insert"] != 1 || o.Settings["max_execution_time"] != 90 {
		t.Fatalf("unexpected settings %v", o.Settings)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background(), Endpoint{}); err == nil {
		t.Fatalf("expected error")
	}
}
