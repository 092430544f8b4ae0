package chains

import (
	"testing"

	"github.com/rs/zerolog"
)

func noopValidator() *Validator {
	return NewValidator(zerolog.Nop())
}

func TestNormalizeNetworkSynonyms(t *testing.T) {
	cases := map[string]string{
		"eth":       "ethereum",
		"ETH":       "ethereum",
		"matic":     "polygon",
		"avax":      "avalanche",
		"bnb":       "bsc",
		"binance":   "bsc",
		"sol":       "solana",
		"pulse":     "pulsechain",
		"arbitrum":  "arbitrum",
		"bittensor": "bittensor",
		"unknown-l2": "unknown-l2",
	}

	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsValidAddress(t *testing.T) {
	v := noopValidator()

	cases := []struct {
		name    string
		address string
		network string
		want    bool
	}{
		{"evm ok", "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", "ethereum", true},
		{"evm synonym", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984", "eth", true},
		{"evm too short", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f98", "ethereum", false},
		{"evm missing prefix", "1f9840a85d5af5bf1d1762f925bdaddc4201f984", "ethereum", false},
		{"evm bad hex", "0xZZ9840a85d5af5bf1d1762f925bdaddc4201f984", "base", false},
		{"solana ok", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "solana", true},
		{"solana invalid char", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt0O", "solana", false},
		{"solana too short", "EPjFWdd5", "solana", false},
		{"sui base58", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "sui", true},
		{"bittensor subnet", "19", "bittensor", true},
		{"bittensor not numeric", "sn19", "bittensor", false},
		{"native bypass", "native:bitcoin", "other", true},
		{"unknown network evm fallback", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984", "somechain", true},
		{"unknown network numeric fallback", "42", "somechain", true},
		{"unknown network garbage", "not-an-address", "somechain", false},
		{"empty address", "", "ethereum", false},
		{"empty network", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984", "", false},
	}

	for _, tc := range cases {
		if got := v.IsValidAddress(tc.address, tc.network); got != tc.want {
			t.Errorf("%s: IsValidAddress(%q, %q) = %v, want %v", tc.name, tc.address, tc.network, got, tc.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	v := noopValidator()

	mixed := "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"
	lower := "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"

	if got := v.NormalizeAddress(mixed, "ethereum"); got != lower {
		t.Fatalf("EVM address should lowercase, got %q", got)
	}

	// Idempotence: normalize(normalize(a)) == normalize(a).
	once := v.NormalizeAddress(mixed, "ethereum")
	if twice := v.NormalizeAddress(once, "ethereum"); twice != once {
		t.Fatalf("normalize is not idempotent: %q != %q", twice, once)
	}

	solana := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	if got := v.NormalizeAddress(solana, "solana"); got != solana {
		t.Fatalf("base58 address must preserve case, got %q", got)
	}

	if got := v.NormalizeAddress("19", "bittensor"); got != "19" {
		t.Fatalf("subnet id must pass through, got %q", got)
	}

	if got := v.NormalizeAddress("native:bitcoin", "other"); got != "native:bitcoin" {
		t.Fatalf("native address must pass through, got %q", got)
	}
}

func TestNativeHelpers(t *testing.T) {
	if !IsNative("native:bitcoin") {
		t.Fatal("native:bitcoin should be native")
	}
	if IsNative("0x1f9840a85d5af5bf1d1762f925bdaddc4201f984") {
		t.Fatal("contract address should not be native")
	}
	if got := NativeID("native:bitcoin"); got != "bitcoin" {
		t.Fatalf("NativeID = %q, want bitcoin", got)
	}
}

func TestLooksLikeAddress(t *testing.T) {
	if !LooksLikeAddress("0x1f9840a85d5af5bf1d1762f925bdaddc4201f984") {
		t.Fatal("EVM address should look like an address")
	}
	if !LooksLikeAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v") {
		t.Fatal("base58 address should look like an address")
	}
	if LooksLikeAddress("bittensor") {
		t.Fatal("free text should not look like an address")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("bsc"); got != "BNB Chain" {
		t.Fatalf("DisplayName(bsc) = %q", got)
	}
	if got := DisplayName("bnb"); got != "BNB Chain" {
		t.Fatalf("DisplayName should normalize synonyms first, got %q", got)
	}
}
