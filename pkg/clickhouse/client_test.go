package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := &ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "pq",
		User:         "default",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	}
	u, err := url.Parse(buildDSN(cfg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/pq" {
		t.Fatalf("unexpected dsn %s", u)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Fatalf("password = %q", pw)
	}
	q := u.Query()
	if q.Get("max_execution_time") != "60" || q.Get("async_insert") != "1" || q.Get("dial_timeout") != "5s" {
		t.Fatalf("query = %v", q)
	}

	cfg.UseHTTP = true
	if u, _ := url.Parse(buildDSN(cfg)); u.Scheme != "http" {
		t.Fatalf("http scheme = %s", u.Scheme)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatalf("expected error without host")
	}
}
