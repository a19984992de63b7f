package pricefeed

// PriceFeedABI is the read-only surface of the swap-box PriceFeed
// contract. getPrice quotes the token amount for buying and selling the
// given ETH amounts against the pool.
const PriceFeedABI = `[
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint256", "name": "tokenReserve", "type": "uint256"},
			{"internalType": "uint256", "name": "ethReserve", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "buyAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "sellAmount", "type": "uint256"}
		],
		"name": "getPrice",
		"outputs": [
			{"internalType": "uint256", "name": "buyPrice", "type": "uint256"},
			{"internalType": "uint256", "name": "sellPrice", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const (
	methodGetReserves = "getReserves"
	methodGetPrice    = "getPrice"
)
