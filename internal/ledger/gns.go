package ledger

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// subgraphRef is a resolved subgraph reference. alias is set only for the
// account-numbered form.
type subgraphRef struct {
	id      *uint256.Int
	key     ids.ID
	account common.Address
	number  string
	alias   string
}

func (p *Processor) resolveSubgraph(ref model.SubgraphRef) (subgraphRef, error) {
	if ref.SubgraphID != nil {
		id, err := ids.FromBig(ref.SubgraphID.Big())
		if err != nil {
			return subgraphRef{}, fmt.Errorf("%w: subgraph id: %v", ErrMalformed, err)
		}
		return subgraphRef{id: id, key: ids.DisplayID(id)}, nil
	}
	if ref.SubgraphNumber == nil {
		return subgraphRef{}, fmt.Errorf("%w: subgraph reference has neither id nor number", ErrMalformed)
	}

	id, err := ids.DeriveSequentialID(ref.GraphAccount, ref.SubgraphNumber.Big(), p.logger)
	if err != nil {
		return subgraphRef{}, fmt.Errorf("%w: derive subgraph id: %v", ErrMalformed, err)
	}
	number := ref.SubgraphNumber.String()
	return subgraphRef{
		id:      id,
		key:     ids.DisplayID(id),
		account: ref.GraphAccount,
		number:  number,
		alias:   ids.JoinKeysAsText(accountText(ref.GraphAccount), number),
	}, nil
}

func accountText(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func versionID(subgraph ids.ID, n uint32) ids.ID {
	return ids.JoinKeys(subgraph, ids.Uint32Bytes(n))
}

// metadataCID renders an on-chain metadata digest. A zero digest means none.
func metadataCID(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return ipfsHash(h.Bytes())
}

func loadOrCreateSubgraph(tx *Tx, net *model.GraphNetwork, ref subgraphRef, owner common.Address) (*model.Subgraph, error) {
	sg, err := load[model.Subgraph](tx, ref.key)
	if err != nil || sg != nil {
		return sg, err
	}

	sg = model.NewSubgraph(ref.key, ids.Base58(ref.id), tx.Timestamp())
	if ref.alias != "" {
		sg.Creator = ids.FromAddress(ref.account)
		sg.SubgraphNumber = ref.number
		sg.LegacyAlias = ref.alias
	}
	if err := setSubgraphOwner(tx, sg, owner); err != nil {
		return nil, err
	}
	net.SubgraphCount++
	tx.Save(sg)
	tx.Save(net)
	return sg, nil
}

// setSubgraphOwner moves the subgraph between accounts' subgraph counts.
// The zero address leaves the subgraph without an owner.
func setSubgraphOwner(tx *Tx, sg *model.Subgraph, owner common.Address) error {
	var next ids.ID
	if owner != (common.Address{}) {
		next = ids.FromAddress(owner)
	}
	if sg.Owner.Equal(next) {
		return nil
	}

	if !sg.Owner.IsZero() {
		prev, err := load[model.GraphAccount](tx, sg.Owner)
		if err != nil {
			return err
		}
		if prev != nil {
			prev.SubgraphCount--
			tx.Save(prev)
		}
	}
	if !next.IsZero() {
		acc, err := loadOrCreateAccount(tx, owner)
		if err != nil {
			return err
		}
		acc.SubgraphCount++
		tx.Save(acc)
	}
	sg.Owner = next
	return nil
}

func activateSubgraph(net *model.GraphNetwork, sg *model.Subgraph) {
	if !sg.Active {
		sg.Active = true
		net.ActiveSubgraphCount++
	}
}

func deactivateSubgraph(net *model.GraphNetwork, sg *model.Subgraph) {
	if sg.Active {
		sg.Active = false
		net.ActiveSubgraphCount--
	}
}

// publishVersion appends a version pointing at deployment and makes it current.
func publishVersion(tx *Tx, net *model.GraphNetwork, sg *model.Subgraph, deployment, metadata common.Hash) error {
	dep, err := loadOrCreateDeployment(tx, net, deployment)
	if err != nil {
		return err
	}

	n := sg.VersionCount
	ver := &model.SubgraphVersion{
		ID:                 versionID(sg.ID, n),
		Subgraph:           sg.ID,
		SubgraphDeployment: dep.ID,
		Version:            n,
		MetadataHash:       metadataCID(metadata),
		CreatedAt:          tx.Timestamp(),
	}
	if sg.LegacyAlias != "" {
		ver.LegacyAlias = ids.JoinKeysAsText(sg.LegacyAlias, strconv.FormatUint(uint64(n), 10))
	}
	tx.Save(ver)

	sg.CurrentVersion = ver.ID
	sg.VersionCount++
	sg.UpdatedAt = tx.Timestamp()
	activateSubgraph(net, sg)
	return nil
}

func updateSubgraphPrice(sg *model.Subgraph) {
	sg.PricePerShare = PriceApproximation(sg.CurrentSignalledTokens, sg.NameSignalAmount, sg.ReserveRatio)
}

// subgraphPublished handles both contract generations. The account-numbered
// form names its owner; the id form gets its owner from the NFT mint.
func (p *Processor) subgraphPublished(tx *Tx, e *model.SubgraphPublished) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := loadOrCreateSubgraph(tx, net, ref, ref.account)
	if err != nil {
		return err
	}

	if ref.alias == "" {
		sg.ReserveRatio = e.ReserveRatio
		sg.Initializing = true
	}
	if err := publishVersion(tx, net, sg, e.SubgraphDeploymentID, e.VersionMetadata); err != nil {
		return err
	}
	tx.Save(sg)
	tx.Save(net)
	return nil
}

// subgraphVersionUpdated completes the version created by publish while the
// subgraph is initializing; afterwards every update is a new version.
func (p *Processor) subgraphVersionUpdated(tx *Tx, e *model.SubgraphVersionUpdated) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}

	if sg.Initializing && sg.VersionCount > 0 {
		sg.Initializing = false
		ver, err := mustLoad[model.SubgraphVersion](tx, versionID(sg.ID, sg.VersionCount-1))
		if err != nil {
			return err
		}
		ver.MetadataHash = metadataCID(e.VersionMetadata)
		tx.Save(ver)
		tx.Save(sg)
		return nil
	}

	if err := publishVersion(tx, net, sg, e.SubgraphDeploymentID, e.VersionMetadata); err != nil {
		return err
	}
	tx.Save(sg)
	tx.Save(net)
	return nil
}

func (p *Processor) subgraphMetadataUpdated(tx *Tx, e *model.SubgraphMetadataUpdated) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}

	var sg *model.Subgraph
	if ref.alias != "" {
		// The first contract generation allowed metadata before publish.
		sg, err = loadOrCreateSubgraph(tx, net, ref, ref.account)
	} else {
		sg, err = mustLoad[model.Subgraph](tx, ref.key)
	}
	if err != nil {
		return err
	}
	sg.MetadataHash = metadataCID(e.SubgraphMetadata)
	sg.UpdatedAt = tx.Timestamp()
	tx.Save(sg)
	return nil
}

func (p *Processor) subgraphDeprecated(tx *Tx, e *model.SubgraphDeprecated) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}

	deactivateSubgraph(net, sg)
	sg.UpdatedAt = tx.Timestamp()
	if e.WithdrawableGRT != nil {
		sg.WithdrawableTokens = e.WithdrawableGRT.Big()
	}
	tx.Save(sg)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) nameSignalEnabled(tx *Tx, e *model.NameSignalEnabled) error {
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}
	sg.ReserveRatio = e.ReserveRatio
	updateSubgraphPrice(sg)
	tx.Save(sg)
	return nil
}

// nameSignalDisabled only fixes the withdrawable amount; the pool itself
// drains through curation burns and GRTWithdrawn.
func (p *Processor) nameSignalDisabled(tx *Tx, e *model.NameSignalDisabled) error {
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}
	sg.WithdrawableTokens = e.WithdrawableGRT.Big()
	tx.Save(sg)
	return nil
}

// signalUpgraded moves the name pool onto a new deployment. The tokens are
// counted as both unsignalled and re-signalled.
func (p *Processor) signalUpgraded(tx *Tx, e *model.SignalUpgraded) error {
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}

	tokens := e.TokensSignalled.Big()
	sg.UnsignalledTokens = add(sg.UnsignalledTokens, tokens)
	sg.SignalledTokens = add(sg.SignalledTokens, tokens)
	sg.CurrentSignalledTokens = tokens
	created := e.Created()
	sg.SignalAmount = created.Big()
	updateSubgraphPrice(sg)
	tx.Save(sg)
	return nil
}

func nameSignalID(curator, subgraph ids.ID) ids.ID {
	return ids.CompoundKey(curator, subgraph)
}

func loadOrCreateNameSignal(tx *Tx, net *model.GraphNetwork, who common.Address, sg *model.Subgraph) (*model.NameSignal, *model.Curator, error) {
	c, err := loadOrCreateCurator(tx, net, who)
	if err != nil {
		return nil, nil, err
	}
	id := nameSignalID(c.ID, sg.ID)
	ns, err := load[model.NameSignal](tx, id)
	if err != nil || ns != nil {
		return ns, c, err
	}

	ns = model.NewNameSignal(id, c.ID, sg.ID, tx.Timestamp())
	if sg.LegacyAlias != "" {
		ns.LegacyAlias = ids.JoinKeysAsText(accountText(who), sg.LegacyAlias)
	}
	c.NameSignalCount++
	sg.NameSignalCount++
	tx.Save(ns)
	tx.Save(c)
	return ns, c, nil
}

func curatorActive(c *model.Curator) bool {
	return c.ActiveSignalCount+c.ActiveNameSignalCount > 0
}

// shiftCuratorActivity adjusts the curator's active position counts and
// keeps the network's active curator count in step.
func shiftCuratorActivity(net *model.GraphNetwork, c *model.Curator, signals, nameSignals int32) {
	before := curatorActive(c)
	c.ActiveSignalCount += signals
	c.ActiveNameSignalCount += nameSignals
	switch after := curatorActive(c); {
	case !before && after:
		net.ActiveCuratorCount++
	case before && !after:
		net.ActiveCuratorCount--
	}
}

func perUnit(total, balance decimal.Decimal) decimal.Decimal {
	if balance.IsZero() {
		return decimal.Zero
	}
	return divTrunc(total, balance)
}

func nameSignalPosition(ns *model.NameSignal) signalPosition {
	return signalPosition{
		acb:       &ns.AverageCostBasis,
		perSignal: &ns.AverageCostBasisPerSignal,
		realized:  &ns.RealizedRewards,
	}
}

func (p *Processor) signalMinted(tx *Tx, e *model.SignalMinted) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}
	ns, c, err := loadOrCreateNameSignal(tx, net, e.Who(), sg)
	if err != nil {
		return err
	}
	created, deposited := e.NSignalCreated.Big(), e.TokensDeposited.Big()

	sg.NameSignalAmount = add(sg.NameSignalAmount, created)
	sg.SignalAmount = add(sg.SignalAmount, e.VSignalCreated.Big())
	sg.SignalledTokens = add(sg.SignalledTokens, deposited)
	sg.CurrentSignalledTokens = add(sg.CurrentSignalledTokens, deposited)
	updateSubgraphPrice(sg)
	tx.Save(sg)

	if ns.NameSignal.Sign() == 0 && created.Sign() > 0 {
		shiftCuratorActivity(net, c, 0, 1)
	}
	ns.NameSignal = add(ns.NameSignal, created)
	ns.SignalledTokens = add(ns.SignalledTokens, deposited)
	ns.LastNameSignalChange = tx.Timestamp()
	nameSignalPosition(ns).mint(deposited, ns.NameSignal)
	tx.Save(ns)

	c.TotalNameSignalledTokens = add(c.TotalNameSignalledTokens, deposited)
	c.TotalNameSignal = c.TotalNameSignal.Add(toDecimal(created))
	c.TotalNameSignalAverageCostBasis = c.TotalNameSignalAverageCostBasis.Add(toDecimal(deposited))
	c.TotalAverageCostBasisPerNameSignal = perUnit(c.TotalNameSignalAverageCostBasis, c.TotalNameSignal)
	tx.Save(c)
	saveNameSignalTx(tx, c.ID, sg.ID, model.NameSignalTxMint, created, e.VSignalCreated.Big(), deposited)
	tx.Save(net)
	return nil
}

func (p *Processor) signalBurned(tx *Tx, e *model.SignalBurned) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}
	c, err := mustLoad[model.Curator](tx, ids.FromAddress(e.Who()))
	if err != nil {
		return err
	}
	ns, err := mustLoad[model.NameSignal](tx, nameSignalID(c.ID, sg.ID))
	if err != nil {
		return err
	}
	burnt, received := e.NSignalBurnt.Big(), e.TokensReceived.Big()

	sg.NameSignalAmount = sub(sg.NameSignalAmount, burnt)
	sg.SignalAmount = sub(sg.SignalAmount, e.VSignalBurnt.Big())
	sg.UnsignalledTokens = add(sg.UnsignalledTokens, received)
	sg.CurrentSignalledTokens = clampZero(sub(sg.CurrentSignalledTokens, received))
	updateSubgraphPrice(sg)
	tx.Save(sg)

	burnNameSignal(net, c, ns, burnt, received, tx.Timestamp())
	ns.UnsignalledTokens = add(ns.UnsignalledTokens, received)
	tx.Save(ns)

	c.TotalNameUnsignalledTokens = add(c.TotalNameUnsignalledTokens, received)
	tx.Save(c)
	saveNameSignalTx(tx, c.ID, sg.ID, model.NameSignalTxBurn, burnt, e.VSignalBurnt.Big(), received)
	tx.Save(net)
	return nil
}

func saveNameSignalTx(tx *Tx, signer, subgraph ids.ID, kind string, nameSignal, versionSignal, tokens *big.Int) {
	tx.Save(&model.NameSignalTransaction{
		ID:            tx.EventID(),
		BlockNumber:   tx.BlockNumber(),
		Timestamp:     tx.Timestamp(),
		Signer:        signer,
		Type:          kind,
		NameSignal:    nameSignal,
		VersionSignal: versionSignal,
		Tokens:        tokens,
		Subgraph:      subgraph,
	})
}

// grtWithdrawn pays out a deprecated subgraph's pool to a name curator. It
// realizes the position the same way a burn does.
func (p *Processor) grtWithdrawn(tx *Tx, e *model.GRTWithdrawn) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}
	c, err := mustLoad[model.Curator](tx, ids.FromAddress(e.Who()))
	if err != nil {
		return err
	}
	ns, err := mustLoad[model.NameSignal](tx, nameSignalID(c.ID, sg.ID))
	if err != nil {
		return err
	}
	burnt, withdrawn := e.NSignalBurnt.Big(), e.WithdrawnGRT.Big()

	sg.WithdrawableTokens = sub(sg.WithdrawableTokens, withdrawn)
	sg.WithdrawnTokens = add(sg.WithdrawnTokens, withdrawn)
	sg.NameSignalAmount = sub(sg.NameSignalAmount, burnt)
	tx.Save(sg)

	burnNameSignal(net, c, ns, burnt, withdrawn, tx.Timestamp())
	ns.WithdrawnTokens = add(ns.WithdrawnTokens, withdrawn)
	tx.Save(ns)

	c.TotalWithdrawnTokens = add(c.TotalWithdrawnTokens, withdrawn)
	tx.Save(c)
	tx.Save(net)
	return nil
}

// burnNameSignal reduces a name signal position and the curator's totals,
// releasing cost basis in proportion to the signal left.
func burnNameSignal(net *model.GraphNetwork, c *model.Curator, ns *model.NameSignal, burnt, received *big.Int, ts uint64) {
	wasActive := ns.NameSignal.Sign() > 0
	ns.NameSignal = sub(ns.NameSignal, burnt)
	ns.LastNameSignalChange = ts
	released := nameSignalPosition(ns).burn(received, ns.NameSignal)
	if wasActive && ns.NameSignal.Sign() <= 0 {
		shiftCuratorActivity(net, c, 0, -1)
	}

	c.TotalNameSignal = c.TotalNameSignal.Sub(toDecimal(burnt))
	c.TotalNameSignalAverageCostBasis = c.TotalNameSignalAverageCostBasis.Sub(released)
	c.TotalAverageCostBasisPerNameSignal = perUnit(c.TotalNameSignalAverageCostBasis, c.TotalNameSignal)
	c.RealizedRewards = c.RealizedRewards.Add(toDecimal(received).Sub(released))
}

func (p *Processor) legacySubgraphClaimed(tx *Tx, e *model.LegacySubgraphClaimed) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(e.SubgraphRef)
	if err != nil {
		return err
	}
	sg, err := loadOrCreateSubgraph(tx, net, ref, ref.account)
	if err != nil {
		return err
	}
	sg.Migrated = true
	sg.UpdatedAt = tx.Timestamp()
	tx.Save(sg)
	tx.Save(net)
	return nil
}

// subgraphTransfer follows the subgraph NFT. A mint creates the subgraph
// ahead of its publish event; a burn leaves it without owner.
func (p *Processor) subgraphTransfer(tx *Tx, e *model.SubgraphTransfer) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(model.SubgraphRef{SubgraphID: &e.TokenID})
	if err != nil {
		return err
	}
	sg, err := loadOrCreateSubgraph(tx, net, ref, e.To)
	if err != nil {
		return err
	}
	if err := setSubgraphOwner(tx, sg, e.To); err != nil {
		return err
	}
	sg.UpdatedAt = tx.Timestamp()
	tx.Save(sg)
	tx.Save(net)
	return nil
}
