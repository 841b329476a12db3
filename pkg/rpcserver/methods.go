package rpcserver

// methodKind classifies a method into one of the three handler
// categories spec §4.G describes.
type methodKind int

const (
	// kindPassThrough forwards the call unchanged to the backend.
	kindPassThrough methodKind = iota
	// kindBlockAnchored resolves the block id param via pkg/blockresolve
	// before forwarding with the resolved id substituted in place.
	kindBlockAnchored
	// kindGetStorageAt is starknet_getStorageAt: resolve block, forward,
	// verify a nonzero result against the resolved state root.
	kindGetStorageAt
	// kindCall is starknet_call: execute against the tracker's current
	// state through pkg/executor and pkg/stateproxy.
	kindCall
	// kindStatic answers from a fixed literal with no backend call.
	kindStatic
)

// pathfinderVersion is the literal pathfinder_version reply (spec
// supplement: "requires no backend call").
const pathfinderVersion = "0.1.0-starknet-lite-proxy"

// methodSpec describes one dispatchable method: its category, its
// parameter names in positional order (for by-name decoding), and for
// block-anchored methods, which parameter carries the block id.
type methodSpec struct {
	kind     methodKind
	params   []string
	blockIdx int
}

// methods is the dispatch table. Pass-through entries are forwarded
// without inspection; block-anchored entries are the listed methods
// whose block_id param is resolved first; the two verifying entries are
// handled specially per spec §4.G category 3. A method not listed here
// (for example starknet_simulateTransactions or the starknet_trace*
// methods) is answered with -32601 and never forwarded.
var methods = map[string]methodSpec{
	"starknet_chainId":             {kind: kindPassThrough},
	"starknet_blockNumber":         {kind: kindPassThrough},
	"starknet_blockHashAndNumber":  {kind: kindPassThrough},
	"starknet_syncing":             {kind: kindPassThrough},
	"starknet_specVersion":         {kind: kindPassThrough},
	"starknet_getTransactionByHash":       {kind: kindPassThrough, params: []string{"transaction_hash"}},
	"starknet_getTransactionReceipt":      {kind: kindPassThrough, params: []string{"transaction_hash"}},
	"starknet_getTransactionStatus":       {kind: kindPassThrough, params: []string{"transaction_hash"}},
	"starknet_getEvents":                  {kind: kindPassThrough, params: []string{"filter"}},
	"starknet_addDeclareTransaction":       {kind: kindPassThrough, params: []string{"declare_transaction"}},
	"starknet_addDeployAccountTransaction": {kind: kindPassThrough, params: []string{"deploy_account_transaction"}},
	"starknet_addInvokeTransaction":        {kind: kindPassThrough, params: []string{"invoke_transaction"}},
	"pathfinder_getTxStatus":       {kind: kindPassThrough, params: []string{"transaction_hash"}},
	"pathfinder_version":           {kind: kindStatic},

	"starknet_getBlockWithTxHashes":     {kind: kindBlockAnchored, params: []string{"block_id"}, blockIdx: 0},
	"starknet_getBlockWithTxs":          {kind: kindBlockAnchored, params: []string{"block_id"}, blockIdx: 0},
	"starknet_getBlockWithReceipts":     {kind: kindBlockAnchored, params: []string{"block_id"}, blockIdx: 0},
	"starknet_getBlockTransactionCount": {kind: kindBlockAnchored, params: []string{"block_id"}, blockIdx: 0},
	"starknet_getStateUpdate":           {kind: kindBlockAnchored, params: []string{"block_id"}, blockIdx: 0},
	"starknet_getClassAt":               {kind: kindBlockAnchored, params: []string{"block_id", "contract_address"}, blockIdx: 0},
	"starknet_getClass":                {kind: kindBlockAnchored, params: []string{"block_id", "class_hash"}, blockIdx: 0},
	"starknet_getClassHashAt":          {kind: kindBlockAnchored, params: []string{"block_id", "contract_address"}, blockIdx: 0},
	"starknet_getNonce":                {kind: kindBlockAnchored, params: []string{"block_id", "contract_address"}, blockIdx: 0},
	"starknet_getTransactionByBlockIdAndIndex": {kind: kindBlockAnchored, params: []string{"block_id", "index"}, blockIdx: 0},
	"starknet_estimateFee":             {kind: kindBlockAnchored, params: []string{"request", "simulation_flags", "block_id"}, blockIdx: 2},
	"starknet_estimateMessageFee":      {kind: kindBlockAnchored, params: []string{"message", "block_id"}, blockIdx: 1},
	"pathfinder_getProof":              {kind: kindBlockAnchored, params: []string{"block_id", "contract_address", "keys"}, blockIdx: 0},

	"starknet_getStorageAt": {kind: kindGetStorageAt, params: []string{"contract_address", "key", "block_id"}},
	"starknet_call":         {kind: kindCall, params: []string{"request", "block_id"}},
}
