package atola

// AtolaABI is the part of the Atola settlement contract the machine uses.
// buyEth pulls tokenAmount tokens credited to the machine and sends at
// least minEth wei to `to`, reverting otherwise.
const AtolaABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "tokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minEth", "type": "uint256"},
			{"internalType": "address", "name": "to", "type": "address"}
		],
		"name": "buyEth",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "to", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "tokenAmount", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "ethAmount", "type": "uint256"}
		],
		"name": "EthBought",
		"type": "event"
	}
]`

const (
	methodBuyEth   = "buyEth"
	eventEthBought = "EthBought"
)
