package config

// TrebFileConfig represents treb.toml
//
//	[accounts.deployer]
//	type = "private_key"
//	private_key = "${DEPLOYER_PRIVATE_KEY}"
//
//	[networks.sepolia]
//	rpc_url = "${SEPOLIA_RPC_URL}"
//	chain_id = 11155111
//	explorer_api_url = "https://api.etherscan.io/v2/api"
//	explorer_api_key = "${ETHERSCAN_API_KEY}"
//	confirmations = 5
type TrebFileConfig struct {
	Accounts  map[string]AccountConfig `toml:"accounts"`
	Networks  map[string]Network       `toml:"networks"`
	Deploy    DeployConfig             `toml:"deploy"`
	Verify    *VerifyConfig            `toml:"verify"`
	Ledger    LedgerConfig             `toml:"ledger"`
	Artifacts ArtifactsConfig          `toml:"artifacts"`
}

