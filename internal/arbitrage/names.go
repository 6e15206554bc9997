package arbitrage

// cryptoNames maps base assets to human-readable names for the dashboard.
var cryptoNames = map[string]string{
	"BTC":   "Bitcoin",
	"ETH":   "Ethereum",
	"BNB":   "Binance Coin",
	"SOL":   "Solana",
	"XRP":   "Ripple",
	"ADA":   "Cardano",
	"AVAX":  "Avalanche",
	"DOGE":  "Dogecoin",
	"MATIC": "Polygon",
	"DOT":   "Polkadot",
	"LINK":  "Chainlink",
	"UNI":   "Uniswap",
	"ATOM":  "Cosmos",
	"LTC":   "Litecoin",
	"TRX":   "Tron",
	"APT":   "Aptos",
}

func displayName(base string) string {
	if name, ok := cryptoNames[base]; ok {
		return name
	}
	return base
}
