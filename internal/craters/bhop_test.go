package craters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/icestrat/internal/config"
)

func TestReadHopCSV(t *testing.T) {
	in := "# comment\ncname,bhop\nHaworth,0.05\n Slater , 0.06\n"
	hops, err := ReadHopCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if hops["Haworth"] != 0.05 || hops["Slater"] != 0.06 {
		t.Errorf("unexpected hops %v", hops)
	}

	for _, bad := range []string{
		"name,bhop\nHaworth,0.05\n",
		"cname,bhop\nHaworth,abc\n",
		"cname,bhop\nHaworth,1.5\n",
	} {
		if _, err := ReadHopCSV(strings.NewReader(bad)); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestColdtrapHop_Embedded(t *testing.T) {
	cfg := config.DefaultConfig()
	list, err := ReadCraters(cfg)
	if err != nil {
		t.Fatalf("read craters: %v", err)
	}
	cts, err := Coldtraps(list, cfg)
	if err != nil {
		t.Fatalf("cold traps: %v", err)
	}

	hops, err := ColdtrapHop(cts, cfg)
	if err != nil {
		t.Fatalf("hop: %v", err)
	}
	byName := make(map[string]float64, len(cts))
	for j, ct := range cts {
		if hops[j] <= 0 || hops[j] > 1 {
			t.Errorf("%s: hop %g out of range", ct.Name, hops[j])
		}
		byName[ct.Name] = hops[j]
	}
	if byName["Shackleton"] <= byName["Cabeus B"] {
		t.Errorf("expected Shackleton (89.6S) to catch more than Cabeus B (82.3S), got %g and %g",
			byName["Shackleton"], byName["Cabeus B"])
	}

	cfg.BallisticHopMoores = false
	hops, err = ColdtrapHop(cts, cfg)
	if err != nil {
		t.Fatalf("hop: %v", err)
	}
	for j, h := range hops {
		if h != cfg.BallisticHopEfficiency {
			t.Errorf("%s: expected constant %g, got %g", cts[j].Name, cfg.BallisticHopEfficiency, h)
		}
	}
}

func TestColdtrapHop_UserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bhop.csv")
	if err := os.WriteFile(path, []byte("cname,bhop\nHaworth,0.2\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.BhopCSV = path

	cts := List{{Name: "Haworth"}, {Name: "Unlisted"}}
	hops, err := ColdtrapHop(cts, cfg)
	if err != nil {
		t.Fatalf("hop: %v", err)
	}
	if hops[0] != 0.2 {
		t.Errorf("expected 0.2 from file, got %g", hops[0])
	}
	if hops[1] != cfg.BallisticHopEfficiency {
		t.Errorf("missing cold trap should fall back to %g, got %g", cfg.BallisticHopEfficiency, hops[1])
	}

	cfg.BhopCSV = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := ColdtrapHop(cts, cfg); err == nil {
		t.Error("expected error for missing bhop_csv")
	}
}
