package main

import "testing"

func TestParseAdminIDs(t *testing.T) {
	ids := parseAdminIDs("42, 100, bogus, 7")
	if len(ids) != 3 || ids[0] != 42 || ids[1] != 100 || ids[2] != 7 {
		t.Errorf("got %v", ids)
	}
	if parseAdminIDs("") != nil {
		t.Error("empty input should return nil")
	}
}

func TestBuildStoreOptions(t *testing.T) {
	if opts := buildStoreOptions(Config{}); len(opts) != 0 {
		t.Errorf("expected no options, got %d", len(opts))
	}
	if opts := buildStoreOptions(Config{DatabaseURL: "/tmp/lb.db"}); len(opts) != 1 {
		t.Errorf("expected one option, got %d", len(opts))
	}
}

func TestBuildTelegramOptions(t *testing.T) {
	opts := buildTelegramOptions(Config{TelegramToken: "tok", AdminIDs: []int64{1}})
	if len(opts) != 2 {
		t.Errorf("expected two options, got %d", len(opts))
	}
}
