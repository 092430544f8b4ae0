// Package chains holds per-network address format rules and the network
// synonym table used to canonicalise loosely specified chain names.
package chains

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

// NativePrefix marks a chain-native asset addressed by registry slug instead
// of a contract address, e.g. "native:bitcoin".
const NativePrefix = "native:"

var networkSynonyms = map[string]string{
	"ethereum":   "ethereum",
	"eth":        "ethereum",
	"arbitrum":   "arbitrum",
	"arb":        "arbitrum",
	"optimism":   "optimism",
	"op":         "optimism",
	"base":       "base",
	"polygon":    "polygon",
	"matic":      "polygon",
	"avalanche":  "avalanche",
	"avax":       "avalanche",
	"bsc":        "bsc",
	"binance":    "bsc",
	"bnb":        "bsc",
	"fantom":     "fantom",
	"ftm":        "fantom",
	"solana":     "solana",
	"sol":        "solana",
	"sui":        "sui",
	"bittensor":  "bittensor",
	"pulsechain": "pulsechain",
	"pulse":      "pulsechain",
	"zksync":     "zksync",
	"linea":      "linea",
	"scroll":     "scroll",
}

var evmNetworks = map[string]bool{
	"ethereum":   true,
	"bsc":        true,
	"base":       true,
	"polygon":    true,
	"avalanche":  true,
	"arbitrum":   true,
	"optimism":   true,
	"fantom":     true,
	"zksync":     true,
	"linea":      true,
	"scroll":     true,
	"pulsechain": true,
}

var base58Networks = map[string]bool{
	"solana": true,
	"sui":    true,
}

var displayNames = map[string]string{
	"ethereum":   "Ethereum",
	"arbitrum":   "Arbitrum",
	"optimism":   "Optimism",
	"base":       "Base",
	"polygon":    "Polygon",
	"avalanche":  "Avalanche",
	"bsc":        "BNB Chain",
	"fantom":     "Fantom",
	"solana":     "Solana",
	"sui":        "Sui",
	"bittensor":  "Bittensor",
	"pulsechain": "PulseChain",
	"zksync":     "zkSync",
	"linea":      "Linea",
	"scroll":     "Scroll",
}

// Normalize maps a network name or synonym to its canonical key. Unknown
// networks are lowercased and passed through.
func Normalize(network string) string {
	key := strings.ToLower(strings.TrimSpace(network))
	if canonical, ok := networkSynonyms[key]; ok {
		return canonical
	}
	return key
}

// DisplayName returns the human-readable name for a canonical network key.
func DisplayName(network string) string {
	if name, ok := displayNames[Normalize(network)]; ok {
		return name
	}
	return network
}

// Known lists canonical network keys in stable order.
func Known() []string {
	return []string{
		"ethereum", "arbitrum", "optimism", "base", "polygon", "avalanche",
		"bsc", "fantom", "solana", "sui", "bittensor", "pulsechain",
		"zksync", "linea", "scroll",
	}
}

// IsNative reports whether the address carries the native-asset prefix.
func IsNative(address string) bool {
	return strings.HasPrefix(address, NativePrefix)
}

// NativeID extracts the registry slug from a native-asset address.
func NativeID(address string) string {
	return strings.TrimPrefix(address, NativePrefix)
}

// Validator checks and normalises contract addresses per network family.
type Validator struct {
	logger zerolog.Logger
}

// NewValidator constructs an address validator.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger.With().Str("component", "address_validator").Logger()}
}

// IsValidAddress reports whether the address matches the format of the given
// network's family. Native-prefixed addresses bypass format validation; their
// validity is established by the registry lookup instead.
func (v *Validator) IsValidAddress(address, network string) bool {
	if address == "" || network == "" {
		return false
	}
	if IsNative(address) {
		return true
	}

	canonical := Normalize(network)
	switch {
	case canonical == "bittensor":
		return isSubnetID(address)
	case base58Networks[canonical]:
		return isBase58Address(address)
	case evmNetworks[canonical]:
		return isEVMAddress(address)
	}

	// Unknown network: accept any recognised family. Deliberate escape hatch
	// for chains not yet enumerated above.
	v.logger.Warn().Str("network", network).Msg("unknown network for address validation")
	return isEVMAddress(address) || isBase58Address(address) || isSubnetID(address)
}

// NormalizeAddress lowercases EVM addresses so uniqueness comparisons are
// case-insensitive. Base58 addresses are case-sensitive and numeric subnet
// IDs have no case, both pass through unchanged.
func (v *Validator) NormalizeAddress(address, network string) string {
	if IsNative(address) {
		return address
	}

	canonical := Normalize(network)
	if canonical == "bittensor" || base58Networks[canonical] {
		return address
	}
	if evmNetworks[canonical] {
		return strings.ToLower(address)
	}
	if isEVMAddress(address) {
		return strings.ToLower(address)
	}
	return address
}

// LooksLikeAddress reports whether free text plausibly is a contract address
// on any supported family. Used to route search queries to the DEX resolver.
func LooksLikeAddress(query string) bool {
	return isEVMAddress(query) || isBase58Address(query)
}

// isEVMAddress requires the 0x prefix that go-ethereum treats as optional.
func isEVMAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

func isBase58Address(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	_, err := base58.Decode(address)
	return err == nil
}

func isSubnetID(address string) bool {
	if address == "" {
		return false
	}
	for _, r := range address {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
