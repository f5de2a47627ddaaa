package scanner

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"feeTierScope/internal/model"
)

func TestParseFeeTiers(t *testing.T) {
	tiers, err := ParseFeeTiers([]string{" 500", "3000", "", "500", "10000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.FeeTier{500, 3000, 10000}
	if len(tiers) != len(want) {
		t.Fatalf("expected %d tiers, got %d", len(want), len(tiers))
	}
	for i := range want {
		if tiers[i] != want[i] {
			t.Fatalf("tier %d: expected %d, got %d", i, want[i], tiers[i])
		}
	}
}

func TestParseFeeTiersRejectsInvalid(t *testing.T) {
	cases := [][]string{
		nil,
		{""},
		{"abc"},
		{"0"},
		{"-500"},
		{"1000000"},
	}
	for _, input := range cases {
		if _, err := ParseFeeTiers(input); err == nil {
			t.Fatalf("expected error for %v", input)
		}
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("token-a", " 0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359") {
		t.Fatalf("unexpected address: %s", addr.Hex())
	}

	for _, input := range []string{"", "0x1234", "not-an-address", "0x0000000000000000000000000000000000000000"} {
		if _, err := ParseAddress("token-a", input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
