package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/matching"
)

func TestParseRatings(t *testing.T) {
	got, err := parseRatings([]string{"A=5", " B = 1.5 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []aptitude.SkillRating{{SkillID: "A", Value: 5}, {SkillID: "B", Value: 1.5}}
	if len(got) != len(want) {
		t.Fatalf("expected %d ratings, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rating %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	for _, bad := range []string{"A", "=3", "A=six", "A=9", "A=-1"} {
		if _, err := parseRatings([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("SKILL_MATCHER_INDEX_PREFIX", "staging_")
	t.Setenv("SKILL_MATCHER_MATCHING_THRESHOLD_SCORE", "0.25")
	t.Setenv("SKILL_MATCHER_SERVER_READ_TIMEOUT", "5s")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if config.Index.Prefix != "staging_" {
		t.Fatalf("expected prefix from env, got %q", config.Index.Prefix)
	}
	if config.Matching.ThresholdScore != 0.25 {
		t.Fatalf("expected threshold 0.25, got %v", config.Matching.ThresholdScore)
	}
	if config.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %v", config.Server.ReadTimeout)
	}
	if config.Index.URL != "http://localhost:9200" {
		t.Fatalf("unexpected default index url %q", config.Index.URL)
	}
	if config.Index.PercolationSuffix == "" {
		t.Fatalf("expected a default percolation suffix")
	}
}

func TestDrillDownWithoutMatches(t *testing.T) {
	var out bytes.Buffer
	if err := drillDown(context.Background(), &out, nil, "p1", []matching.OccupationMatching{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "no occupations matched") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if out.String() != "skill-matcher version: unknown\n" {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}
