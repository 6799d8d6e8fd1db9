package ledger

import (
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

func signalID(curator, deployment ids.ID) ids.ID {
	return ids.CompoundKey(curator, deployment)
}

func curationPosition(sig *model.Signal) signalPosition {
	return signalPosition{
		acb:       &sig.AverageCostBasis,
		perSignal: &sig.AverageCostBasisPerSignal,
		realized:  &sig.RealizedRewards,
	}
}

func loadOrCreateSignal(tx *Tx, c *model.Curator, dep *model.SubgraphDeployment) (*model.Signal, error) {
	id := signalID(c.ID, dep.ID)
	sig, err := load[model.Signal](tx, id)
	if err != nil || sig != nil {
		return sig, err
	}
	sig = model.NewSignal(id, c.ID, dep.ID, tx.Timestamp())
	c.SignalCount++
	tx.Save(sig)
	tx.Save(c)
	return sig, nil
}

func updateDeploymentPrice(dep *model.SubgraphDeployment) {
	dep.PricePerShare = PriceApproximation(dep.SignalledTokens, dep.SignalAmount, dep.ReserveRatio)
}

// signalled books a curation deposit net of the curation tax.
func (p *Processor) signalled(tx *Tx, e *model.Signalled) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	c, err := loadOrCreateCurator(tx, net, e.Curator)
	if err != nil {
		return err
	}
	dep, err := loadOrCreateDeployment(tx, net, e.SubgraphDeploymentID)
	if err != nil {
		return err
	}
	sig, err := loadOrCreateSignal(tx, c, dep)
	if err != nil {
		return err
	}
	tokens := sub(e.Tokens.Big(), e.CurationTax.Big())
	signal := e.Signal.Big()

	if sig.Signal.Sign() == 0 && signal.Sign() > 0 {
		shiftCuratorActivity(net, c, 1, 0)
	}
	sig.SignalledTokens = add(sig.SignalledTokens, tokens)
	sig.Signal = add(sig.Signal, signal)
	sig.LastSignalChange = tx.Timestamp()
	curationPosition(sig).mint(tokens, sig.Signal)
	tx.Save(sig)

	c.TotalSignalledTokens = add(c.TotalSignalledTokens, tokens)
	c.TotalSignal = c.TotalSignal.Add(toDecimal(signal))
	c.TotalSignalAverageCostBasis = c.TotalSignalAverageCostBasis.Add(toDecimal(tokens))
	c.TotalAverageCostBasisPerSignal = perUnit(c.TotalSignalAverageCostBasis, c.TotalSignal)
	tx.Save(c)

	dep.SignalledTokens = add(dep.SignalledTokens, tokens)
	dep.SignalAmount = add(dep.SignalAmount, signal)
	updateDeploymentPrice(dep)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	tx.Save(&model.SignalTransaction{
		ID:                 tx.EventID(),
		BlockNumber:        tx.BlockNumber(),
		Timestamp:          tx.Timestamp(),
		Signer:             c.ID,
		Type:               model.SignalTxMint,
		Signal:             signal,
		Tokens:             tokens,
		WithdrawalFees:     model.Zero(),
		SubgraphDeployment: dep.ID,
	})

	net.TotalTokensSignalled = add(net.TotalTokensSignalled, tokens)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) burned(tx *Tx, e *model.Burned) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	c, err := mustLoad[model.Curator](tx, ids.FromAddress(e.Curator))
	if err != nil {
		return err
	}
	dep, err := mustLoad[model.SubgraphDeployment](tx, ids.FromHash(e.SubgraphDeploymentID))
	if err != nil {
		return err
	}
	sig, err := mustLoad[model.Signal](tx, signalID(c.ID, dep.ID))
	if err != nil {
		return err
	}
	tokens, signal := e.Tokens.Big(), e.Signal.Big()

	wasActive := sig.Signal.Sign() > 0
	sig.UnsignalledTokens = add(sig.UnsignalledTokens, tokens)
	sig.Signal = sub(sig.Signal, signal)
	sig.LastSignalChange = tx.Timestamp()
	released := curationPosition(sig).burn(tokens, sig.Signal)
	if wasActive && sig.Signal.Sign() <= 0 {
		shiftCuratorActivity(net, c, -1, 0)
	}
	tx.Save(sig)

	c.TotalUnsignalledTokens = add(c.TotalUnsignalledTokens, tokens)
	c.TotalSignal = c.TotalSignal.Sub(toDecimal(signal))
	c.TotalSignalAverageCostBasis = c.TotalSignalAverageCostBasis.Sub(released)
	c.TotalAverageCostBasisPerSignal = perUnit(c.TotalSignalAverageCostBasis, c.TotalSignal)
	c.RealizedRewards = c.RealizedRewards.Add(toDecimal(tokens).Sub(released))
	tx.Save(c)

	dep.SignalledTokens = sub(dep.SignalledTokens, tokens)
	dep.UnsignalledTokens = add(dep.UnsignalledTokens, tokens)
	dep.SignalAmount = sub(dep.SignalAmount, signal)
	updateDeploymentPrice(dep)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	tx.Save(&model.SignalTransaction{
		ID:                 tx.EventID(),
		BlockNumber:        tx.BlockNumber(),
		Timestamp:          tx.Timestamp(),
		Signer:             c.ID,
		Type:               model.SignalTxBurn,
		Signal:             signal,
		Tokens:             tokens,
		WithdrawalFees:     model.Zero(),
		SubgraphDeployment: dep.ID,
	})

	net.TotalTokensSignalled = sub(net.TotalTokensSignalled, tokens)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) curationParameterUpdated(tx *Tx, e *model.ParameterUpdated) error {
	if e.Param != "defaultReserveRatio" {
		return nil
	}
	if e.Value == nil {
		p.logger.Warn("parameter update without value", zap.String("param", e.Param))
		return nil
	}
	net, err := tx.Network()
	if err != nil {
		return err
	}
	net.DefaultReserveRatio = uint32(e.Value.Big().Uint64())
	commitNetwork(tx, net)
	return nil
}
