package models

// Symbol is one entry of the upstream symbol list.
type Symbol struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// DefaultSymbols is served whenever the upstream symbol list cannot be used.
var DefaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "XRPUSDT",
	"LTCUSDT", "EOSUSDT", "NEOUSDT", "QTUMUSDT",
}
