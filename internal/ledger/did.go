package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// graphNameService is keccak256("GRAPH NAME SERVICE"), the attribute under
// which accounts publish their profile document.
var graphNameService = common.HexToHash("0x72abcb436eed911d1b6046bbe645c235ec3767c842eb1005a6da9326c2347e4c")

// didAttributeChanged points the account at a new metadata record and asks
// for the document to be fetched once the event is committed.
func (p *Processor) didAttributeChanged(tx *Tx, e *model.DIDAttributeChanged) error {
	acc, err := loadOrCreateAccount(tx, e.Identity)
	if err != nil {
		return err
	}
	if e.Name != graphNameService {
		return nil
	}
	if len(e.Value) < 32 {
		p.logger.Warn("metadata attribute shorter than a digest",
			zap.String("identity", accountText(e.Identity)),
			zap.Int("len", len(e.Value)),
		)
		return nil
	}

	digest := e.Value[:32]
	multihash := append([]byte{0x12, 0x20}, digest...)
	id := ids.JoinKeys(
		common.HexToHash(tx.ev.TxHash).Bytes(),
		ids.Uint64Bytes(tx.ev.LogIndex),
		acc.ID,
		multihash,
	)
	acc.Metadata = id
	tx.Save(acc)
	tx.requestMetadata(id, ipfsHash(digest))
	return nil
}
