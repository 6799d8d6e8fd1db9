package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

func TestCurationSignal(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	h.mustApply("CurationParameterUpdated", model.ParameterUpdated{Param: "defaultReserveRatio", Value: amtPtr(500_000)})
	h.mustApply("Signalled", model.Signalled{
		Curator:              curatorAddr,
		SubgraphDeploymentID: deploymentHash,
		Tokens:               amt(101),
		Signal:               amt(100),
		CurationTax:          amt(1),
	})

	depID := ids.FromHash(deploymentHash)
	sigID := signalID(ids.FromAddress(curatorAddr), depID)

	dep := fetch[model.SubgraphDeployment](h, depID)
	assert.EqualValues(t, 500_000, dep.ReserveRatio)
	requireBig(t, grt(100), dep.SignalledTokens)
	requireDec(t, "2", dep.PricePerShare)

	sig := fetch[model.Signal](h, sigID)
	requireDec(t, "100000000000000000000", sig.AverageCostBasis)
	requireDec(t, "1", sig.AverageCostBasisPerSignal)

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	assert.EqualValues(t, 1, net.CuratorCount)
	assert.EqualValues(t, 1, net.ActiveCuratorCount)
	requireBig(t, grt(100), net.TotalTokensSignalled)

	h.mustApply("Burned", model.Burned{
		Curator:              curatorAddr,
		SubgraphDeploymentID: deploymentHash,
		Tokens:               amt(60),
		Signal:               amt(50),
	})
	sig = fetch[model.Signal](h, sigID)
	requireBig(t, grt(50), sig.Signal)
	requireDec(t, "50000000000000000000", sig.AverageCostBasis)
	requireDec(t, "10000000000000000000", sig.RealizedRewards)

	dep = fetch[model.SubgraphDeployment](h, depID)
	requireBig(t, grt(40), dep.SignalledTokens)
	requireDec(t, "1.6", dep.PricePerShare)

	c := fetch[model.Curator](h, ids.FromAddress(curatorAddr))
	requireDec(t, "10000000000000000000", c.RealizedRewards)
	requireDec(t, "50000000000000000000", c.TotalSignalAverageCostBasis)
	assert.EqualValues(t, 1, c.ActiveSignalCount)

	h.mustApply("Burned", model.Burned{
		Curator:              curatorAddr,
		SubgraphDeploymentID: deploymentHash,
		Tokens:               amt(50),
		Signal:               amt(50),
	})
	c = fetch[model.Curator](h, ids.FromAddress(curatorAddr))
	assert.EqualValues(t, 0, c.ActiveSignalCount)
	assert.EqualValues(t, 1, c.SignalCount)
	requireDec(t, "10000000000000000000", c.RealizedRewards)
	assert.True(t, c.TotalAverageCostBasisPerSignal.IsZero())

	net = fetch[model.GraphNetwork](h, model.NetworkID)
	assert.EqualValues(t, 0, net.ActiveCuratorCount)
	assert.Zero(t, fetch[model.SubgraphDeployment](h, depID).PricePerShare.Sign())
}

func TestCurationWithoutReserveRatio(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	h.mustApply("Signalled", model.Signalled{
		Curator:              curatorAddr,
		SubgraphDeploymentID: deploymentHash,
		Tokens:               amt(1),
		Signal:               amt(1),
	})
	requireDec(t, "500000", fetch[model.SubgraphDeployment](h, ids.FromHash(deploymentHash)).PricePerShare)
}

func TestBurnWithoutSignal(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	_, err := h.apply("Burned", model.Burned{Curator: curatorAddr, SubgraphDeploymentID: deploymentHash})
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestCuratorActiveAcrossSignalKinds(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	h.mustApply("Signalled", model.Signalled{
		Curator: curatorAddr, SubgraphDeploymentID: deploymentHash, Tokens: amt(10), Signal: amt(10),
	})
	h.mustApply("SubgraphPublishedV2", model.SubgraphPublished{SubgraphRef: idRef(), SubgraphDeploymentID: deploymentHash})
	h.mustApply("SignalMinted", model.SignalMinted{
		SubgraphRef: idRef(), Curator: curatorAddr, NSignalCreated: amt(10), VSignalCreated: amt(10), TokensDeposited: amt(10),
	})
	h.mustApply("Burned", model.Burned{
		Curator: curatorAddr, SubgraphDeploymentID: deploymentHash, Tokens: amt(10), Signal: amt(10),
	})

	// Still active through the name signal.
	assert.EqualValues(t, 1, fetch[model.GraphNetwork](h, model.NetworkID).ActiveCuratorCount)
	c := fetch[model.Curator](h, ids.FromAddress(curatorAddr))
	assert.EqualValues(t, 0, c.ActiveSignalCount)
	assert.EqualValues(t, 1, c.ActiveNameSignalCount)
}

func TestSignalTransactionHistory(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	h.mustApply("Signalled", model.Signalled{
		Curator:              curatorAddr,
		SubgraphDeploymentID: deploymentHash,
		Tokens:               amt(101),
		Signal:               amt(100),
		CurationTax:          amt(1),
	})
	mintID := h.lastEventID()

	h.block++
	h.mustApply("Burned", model.Burned{
		Curator:              curatorAddr,
		SubgraphDeploymentID: deploymentHash,
		Tokens:               amt(60),
		Signal:               amt(50),
	})
	burnID := h.lastEventID()
	require.False(t, mintID.Equal(burnID))

	mint := fetch[model.SignalTransaction](h, mintID)
	assert.Equal(t, model.SignalTxMint, mint.Type)
	assert.Equal(t, ids.FromAddress(curatorAddr), mint.Signer)
	assert.Equal(t, ids.FromHash(deploymentHash), mint.SubgraphDeployment)
	assert.EqualValues(t, 100, mint.BlockNumber)
	assert.EqualValues(t, testTimestamp, mint.Timestamp)
	requireBig(t, grt(100), mint.Signal)
	requireBig(t, grt(100), mint.Tokens)
	assert.Zero(t, mint.WithdrawalFees.Sign())

	burn := fetch[model.SignalTransaction](h, burnID)
	assert.Equal(t, model.SignalTxBurn, burn.Type)
	assert.EqualValues(t, 101, burn.BlockNumber)
	requireBig(t, grt(50), burn.Signal)
	requireBig(t, grt(60), burn.Tokens)
}
