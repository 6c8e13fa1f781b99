package solana

// Environment is the RPC endpoint of a public cluster.
type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

var environmentsByName = map[string]Environment{
	"devnet":       EnvironmentDev,
	"testnet":      EnvironmentTest,
	"mainnet-beta": EnvironmentProd,
	"mainnet":      EnvironmentProd,
}

// ResolveEndpoint maps a cluster name such as "devnet" to its public RPC
// endpoint. Anything else is returned unchanged.
func ResolveEndpoint(nameOrURL string) string {
	if env, ok := environmentsByName[nameOrURL]; ok {
		return string(env)
	}
	return nameOrURL
}
