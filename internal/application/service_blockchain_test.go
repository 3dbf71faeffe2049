package application

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/deptrai/longthanhland-sub000/internal/domain"
	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

const (
	testToken  = "0x55d398326f99059ff775485246999027b3197955"
	testWallet = "0x9f8e7d6c5b4a39281706f5e4d3c2b1a098765432"
	testSender = "0x1111111111111111111111111111111111111111"
)

// usdtWei shifts a whole USDT amount by BSC's 18 decimals.
func usdtWei(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func paddedTopic(address string) string {
	return "0x" + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(address), "0x")
}

func transferReceipt(txHash, token, to string, amount *big.Int) ports.ChainReceipt {
	return ports.ChainReceipt{
		TxHash: txHash,
		Status: 1,
		Logs: []ports.ChainLog{{
			Address: token,
			Topics: []string{
				erc20TransferTopic,
				paddedTopic(testSender),
				paddedTopic(to),
			},
			Data: amount.Bytes(),
		}},
	}
}

func TestBlockchainWebhookSettlesMatchingOrder(t *testing.T) {
	t.Parallel()

	// 260000 VND at 26000 VND/USDT quotes to 10 USDT.
	order := pendingUSDTOrder("DGX-20260110-USDT1", 260000, 2)
	env := newTestEnv(order)
	env.chain.receipts["0xabc"] = transferReceipt("0xabc", testToken, testWallet, usdtWei(10))

	res, err := env.svc.ProcessBlockchainWebhook(context.Background(), BlockchainWebhookRequest{
		TxHash:    "0xabc",
		ToAddress: testWallet,
		Amount:    usdtWei(10).String(),
		Network:   "bsc",
		Timestamp: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC).Unix(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Message != "Payment processed successfully" {
		t.Fatalf("unexpected result: %+v", res)
	}

	settled, _ := env.orders.GetByID(context.Background(), order.OrderID)
	if !settled.Settled() || settled.TransactionHash != "0xabc" {
		t.Fatalf("order not settled: %+v", settled)
	}
	if settled.PaidAt == nil || !settled.PaidAt.Equal(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("paid_at not taken from chain timestamp: %v", settled.PaidAt)
	}
	if len(env.treeCodes.codes) != 2 {
		t.Fatalf("expected 2 tree codes, got %d", len(env.treeCodes.codes))
	}
}

func TestBlockchainWebhookReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	order := pendingUSDTOrder("DGX-20260110-USDT1", 260000, 1)
	env := newTestEnv(order)
	env.chain.receipts["0xabc"] = transferReceipt("0xabc", testToken, testWallet, usdtWei(10))
	req := BlockchainWebhookRequest{TxHash: "0xabc", Amount: usdtWei(10).String()}

	if first, err := env.svc.ProcessBlockchainWebhook(context.Background(), req); err != nil || !first.Success {
		t.Fatalf("first delivery failed: %+v err=%v", first, err)
	}
	second, err := env.svc.ProcessBlockchainWebhook(context.Background(), req)
	if err != nil {
		t.Fatalf("replay errored: %v", err)
	}
	if !second.Success || second.Message != "Transaction already processed" {
		t.Fatalf("replay not deduplicated: %+v", second)
	}
	if env.orders.calls.settles != 1 {
		t.Fatalf("ledger written %d times, want 1", env.orders.calls.settles)
	}
}

func TestBlockchainWebhookRejectsInsufficientAmount(t *testing.T) {
	t.Parallel()

	order := pendingUSDTOrder("DGX-20260110-USDT1", 260000, 1)
	env := newTestEnv(order)
	// Watcher claims 10 USDT but the chain only moved 9; the 5% floor is 9.5.
	env.chain.receipts["0xabc"] = transferReceipt("0xabc", testToken, testWallet, usdtWei(9))

	res, err := env.svc.ProcessBlockchainWebhook(context.Background(), BlockchainWebhookRequest{
		TxHash: "0xabc",
		Amount: usdtWei(10).String(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatalf("insufficient transfer accepted: %+v", res)
	}
	if !strings.Contains(res.Message, "expected 10.00 USDT") || !strings.Contains(res.Message, "received 9.00 USDT") {
		t.Fatalf("unexpected rejection message: %q", res.Message)
	}

	current, _ := env.orders.GetByID(context.Background(), order.OrderID)
	if current.Settled() {
		t.Fatal("rejected payment must not settle the order")
	}
}

func TestBlockchainWebhookAcceptsOverpayment(t *testing.T) {
	t.Parallel()

	order := pendingUSDTOrder("DGX-20260110-USDT1", 260000, 1)
	env := newTestEnv(order)
	// Claimed amount inside the match band, on-chain amount above expected.
	env.chain.receipts["0xabc"] = transferReceipt("0xabc", testToken, testWallet, usdtWei(12))

	res, err := env.svc.ProcessBlockchainWebhook(context.Background(), BlockchainWebhookRequest{
		TxHash: "0xabc",
		Amount: usdtWei(10).String(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("over-payment must be accepted: %+v", res)
	}
}

func TestBlockchainWebhookVerificationRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		receipt func() ports.ChainReceipt
		absent  bool
		message string
	}{
		{
			name:    "transaction unknown to chain",
			absent:  true,
			message: "Transaction not found on chain",
		},
		{
			name: "reverted transaction",
			receipt: func() ports.ChainReceipt {
				r := transferReceipt("0xabc", testToken, testWallet, usdtWei(10))
				r.Status = 0
				return r
			},
			message: "Transaction failed on chain",
		},
		{
			name: "no transfer of the configured token",
			receipt: func() ports.ChainReceipt {
				return transferReceipt("0xabc", "0x2222222222222222222222222222222222222222", testWallet, usdtWei(10))
			},
			message: "No matching token transfer in transaction",
		},
		{
			name: "transfer to a different wallet",
			receipt: func() ports.ChainReceipt {
				return transferReceipt("0xabc", testToken, "0x3333333333333333333333333333333333333333", usdtWei(10))
			},
			message: "Transfer recipient does not match receiving wallet",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(pendingUSDTOrder("DGX-20260110-USDT1", 260000, 1))
			if !tc.absent {
				env.chain.receipts["0xabc"] = tc.receipt()
			}

			res, err := env.svc.ProcessBlockchainWebhook(context.Background(), BlockchainWebhookRequest{
				TxHash: "0xabc",
				Amount: usdtWei(10).String(),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Success || res.Message != tc.message {
				t.Fatalf("got %+v, want rejection %q", res, tc.message)
			}
		})
	}
}

func TestBlockchainWebhookRejectsUnmatchedAmount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(pendingUSDTOrder("DGX-20260110-USDT1", 260000, 1))
	res, err := env.svc.ProcessBlockchainWebhook(context.Background(), BlockchainWebhookRequest{
		TxHash: "0xdef",
		Amount: usdtWei(99).String(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.Message != "No pending order matched payment amount" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestBlockchainWebhookFailsWithoutWallet(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	env.svc.cfg.ReceivingWallet = ""

	_, err := env.svc.ProcessBlockchainWebhook(context.Background(), BlockchainWebhookRequest{TxHash: "0xabc"})
	if !errors.Is(err, domain.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestClaimedUSDTAmountRejectsGarbage(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	for _, raw := range []string{"", "abc", "-5", "1.5"} {
		if _, err := env.svc.claimedUSDTAmount(raw); err == nil {
			t.Fatalf("claimedUSDTAmount(%q) accepted invalid input", raw)
		}
	}
	got, err := env.svc.claimedUSDTAmount(usdtWei(3).String())
	if err != nil || got != 3 {
		t.Fatalf("claimedUSDTAmount(3 USDT raw) = (%v, %v)", got, err)
	}
}
