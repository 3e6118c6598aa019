package vault

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/congo-pay/custody-vault/internal/asset"
	"github.com/congo-pay/custody-vault/internal/state"
)

// Holding compares what the ledger owes for one asset with what custody holds.
type Holding struct {
	Asset  common.Address `json:"asset"`
	Owed   *uint256.Int   `json:"owed"`
	Held   *uint256.Int   `json:"held"`
	Backed bool           `json:"backed"`
}

// Report is the result of Audit.
type Report struct {
	Holdings      []Holding    `json:"holdings"`
	WrappedSupply *uint256.Int `json:"wrapped_supply"`
	WrapReserve   *uint256.Int `json:"wrap_reserve"`
	Healthy       bool         `json:"healthy"`
}

// Audit checks the custody invariants: every ledger sums to no more than what
// custody actually holds, and wrapped supply equals the wrap reserve. The native
// coin is always audited; token assets are audited when listed. All figures
// come from the same state.
func (v *Vault) Audit(ctx context.Context, assets ...common.Address) (Report, error) {
	var report Report
	err := v.env.Backend.View(ctx, func(ctx context.Context) error {
		var err error
		report, err = v.audit(ctx, assets)
		return err
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (v *Vault) audit(ctx context.Context, assets []common.Address) (Report, error) {
	reader := v.env.Backend.Read(ctx)
	report := Report{
		WrappedSupply: v.wrapped.TotalSupply(ctx),
		WrapReserve:   v.NativeCoinDeposits(ctx, v.address),
	}
	report.Healthy = report.WrappedSupply.Eq(report.WrapReserve)

	seen := map[common.Address]bool{}
	for _, id := range append([]common.Address{asset.Native}, assets...) {
		if seen[id] {
			continue
		}
		seen[id] = true

		t, err := asset.Select(id, v.address, v.env.Bank, v.env.Tokens)
		if err != nil {
			return Report{}, err
		}
		held, err := asset.Held(ctx, t)
		if err != nil {
			return Report{}, err
		}
		owed := v.owed(reader, id)
		h := Holding{Asset: id, Owed: owed, Held: held, Backed: !held.Lt(owed)}
		report.Holdings = append(report.Holdings, h)
		report.Healthy = report.Healthy && h.Backed
	}
	return report, nil
}

func (v *Vault) owed(reader state.Reader, id common.Address) *uint256.Int {
	total := new(uint256.Int)
	if asset.IsNative(id) {
		reader.Each(v.address, state.TableNativeDeposits, func(_ state.Key, val uint256.Int) bool {
			total.Add(total, &val)
			return true
		})
		return total
	}
	reader.Each(v.address, state.TableTokenDeposits, func(k state.Key, val uint256.Int) bool {
		if k.B == id {
			total.Add(total, &val)
		}
		return true
	})
	return total
}
