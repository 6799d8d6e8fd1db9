package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// OwnerOracle looks up the registered owner of an ENS node. ok is false
// when the lookup reverted.
type OwnerOracle interface {
	OwnerOf(node common.Hash) (owner common.Address, ok bool)
}

const nameSystemENS = "ENS"

// ethNode is namehash("eth").
var ethNode = common.HexToHash("0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae")

// checkTLD accepts only first-level .eth names whose label hashes to node.
func checkTLD(name string, node common.Hash) bool {
	if name == "" || strings.Contains(name, ".") {
		return false
	}
	label := crypto.Keccak256([]byte(name))
	return common.BytesToHash(crypto.Keccak256(ethNode.Bytes(), label)) == node
}

func accountNameID(node common.Hash) ids.ID {
	return ids.JoinKeys([]byte(nameSystemENS), node.Bytes())
}

func (p *Processor) ownsName(e *model.SetDefaultName) bool {
	if p.oracle != nil {
		owner, ok := p.oracle.OwnerOf(e.NameIdentifier)
		if !ok {
			p.logger.Warn("name owner lookup reverted",
				zap.String("node", e.NameIdentifier.Hex()),
			)
			return false
		}
		return owner == e.GraphAccount
	}
	return e.NameOwner != nil && *e.NameOwner == e.GraphAccount
}

// resolveName binds a verified name to the event's account and returns it.
// It returns nil when the name fails verification.
func (p *Processor) resolveName(tx *Tx, e *model.SetDefaultName) (*model.GraphAccountName, error) {
	if !checkTLD(e.Name, e.NameIdentifier) || !p.ownsName(e) {
		return nil, nil
	}

	id := accountNameID(e.NameIdentifier)
	account := ids.FromAddress(e.GraphAccount)
	name, err := load[model.GraphAccountName](tx, id)
	if err != nil {
		return nil, err
	}
	if name == nil {
		name = &model.GraphAccountName{
			ID:           id,
			NameSystem:   nameSystemENS,
			Name:         e.Name,
			GraphAccount: account,
		}
		tx.Save(name)
		return name, nil
	}
	if name.GraphAccount.Equal(account) {
		return name, nil
	}

	// The name changed hands; the previous holder loses it.
	if !name.GraphAccount.IsZero() {
		prev, err := load[model.GraphAccount](tx, name.GraphAccount)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.DefaultName.Equal(id) {
			if err := setDisplayName(tx, prev, nil, ""); err != nil {
				return nil, err
			}
		}
	}
	name.GraphAccount = account
	tx.Save(name)
	return name, nil
}

// setDisplayName updates the account and mirrors the display name onto its
// indexer and delegator, if they exist.
func setDisplayName(tx *Tx, acc *model.GraphAccount, name ids.ID, display string) error {
	acc.DefaultName = name
	acc.DefaultDisplayName = display
	tx.Save(acc)

	ix, err := load[model.Indexer](tx, acc.ID)
	if err != nil {
		return err
	}
	if ix != nil {
		ix.DefaultDisplayName = display
		tx.Save(ix)
	}
	d, err := load[model.Delegator](tx, acc.ID)
	if err != nil {
		return err
	}
	if d != nil {
		d.DefaultDisplayName = display
		tx.Save(d)
	}
	return nil
}

// setDefaultName resets the name on a zero identifier. A name that fails
// verification never replaces one that passed.
func (p *Processor) setDefaultName(tx *Tx, e *model.SetDefaultName) error {
	acc, err := loadOrCreateAccount(tx, e.GraphAccount)
	if err != nil {
		return err
	}

	if !acc.DefaultName.IsZero() {
		current, err := load[model.GraphAccountName](tx, acc.DefaultName)
		if err != nil {
			return err
		}
		if current != nil && current.Name == e.Name {
			return nil
		}
		if e.NameIdentifier == (common.Hash{}) {
			if current != nil {
				current.GraphAccount = nil
				tx.Save(current)
			}
			return setDisplayName(tx, acc, nil, "")
		}
	}

	name, err := p.resolveName(tx, e)
	if err != nil {
		return err
	}
	if name == nil {
		p.logger.Debug("default name not verified",
			zap.String("account", accountText(e.GraphAccount)),
			zap.String("name", e.Name),
		)
		return nil
	}
	return setDisplayName(tx, acc, name.ID, e.Name)
}
