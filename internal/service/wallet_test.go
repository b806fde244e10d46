package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"capypay/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAccount(cedula string, balance string) *model.Account {
	return &model.Account{
		ID:      uuid.New(),
		Cedula:  cedula,
		Name:    "User " + cedula,
		Email:   strings.ToLower(cedula) + "@test.local",
		Tier:    model.TierStandard,
		Balance: dec(balance),
	}
}

func newWalletFixture(p2pCommission bool, accounts ...*model.Account) (*WalletEngine, *fakeAccounts, *fakeWallet, *fakeRates, *fakeBus) {
	accs := newFakeAccounts(accounts...)
	wallet := newFakeWallet(accs)
	rates := &fakeRates{}
	bus := &fakeBus{}
	engine := NewWalletEngine(accs, wallet, rates, bus, p2pCommission)
	return engine, accs, wallet, rates, bus
}

func TestRechargeCreditsAtRate(t *testing.T) {
	acc := testAccount("V-100", "0")
	engine, accs, wallet, rates, _ := newWalletFixture(false, acc)
	require.NoError(t, rates.Set(context.Background(), dec("50")))

	res, err := engine.Recharge(context.Background(), model.RechargeRequest{
		Cedula:   "V-100",
		AmountBs: dec("100"),
		Method:   "pago_movil",
	})
	require.NoError(t, err)

	// 100 Bs at rate 50 Bs/Capy credits exactly 2.00 Capys.
	assert.True(t, res.NewBalance.Equal(dec("2")), "balance = %s", res.NewBalance)
	assert.True(t, res.Recharge.AmountCpy.Equal(dec("2")))
	assert.True(t, res.Recharge.Rate.Equal(dec("50")), "rate must be snapshotted")
	assert.Equal(t, "pago_movil", res.Recharge.Method)

	stored, err := accs.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("2")))
	assert.Equal(t, int64(xpPerRecharge), stored.XP)
	assert.Len(t, wallet.recharges, 1)
}

func TestRechargeRoundsToTwoDecimals(t *testing.T) {
	acc := testAccount("V-101", "0")
	engine, _, _, rates, _ := newWalletFixture(false, acc)
	require.NoError(t, rates.Set(context.Background(), dec("3")))

	res, err := engine.Recharge(context.Background(), model.RechargeRequest{
		Cedula:   "V-101",
		AmountBs: dec("10"),
	})
	require.NoError(t, err)

	// 10/3 = 3.333... rounded to 3.33.
	assert.True(t, res.NewBalance.Equal(dec("3.33")), "balance = %s", res.NewBalance)
}

func TestRechargeRejectsNonPositiveAmount(t *testing.T) {
	acc := testAccount("V-102", "0")
	engine, _, wallet, rates, _ := newWalletFixture(false, acc)
	require.NoError(t, rates.Set(context.Background(), dec("50")))

	for _, amount := range []string{"0", "-5"} {
		_, err := engine.Recharge(context.Background(), model.RechargeRequest{
			Cedula:   "V-102",
			AmountBs: dec(amount),
		})
		assert.ErrorIs(t, err, model.ErrInvalidAmount, "amount %s", amount)
	}
	assert.Empty(t, wallet.recharges)
}

func TestRechargeFailsWhenRateNotSet(t *testing.T) {
	acc := testAccount("V-103", "0")
	engine, accs, _, _, _ := newWalletFixture(false, acc)

	_, err := engine.Recharge(context.Background(), model.RechargeRequest{
		Cedula:   "V-103",
		AmountBs: dec("100"),
	})
	assert.ErrorIs(t, err, model.ErrRateNotSet)

	stored, err := accs.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero(), "no rate, no credit")
}

func TestRechargeUnknownAccount(t *testing.T) {
	engine, _, _, rates, _ := newWalletFixture(false)
	require.NoError(t, rates.Set(context.Background(), dec("50")))

	_, err := engine.Recharge(context.Background(), model.RechargeRequest{
		Cedula:   "V-999",
		AmountBs: dec("100"),
	})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestRechargeXPFailureDoesNotFailRecharge(t *testing.T) {
	acc := testAccount("V-104", "0")
	engine, accs, _, rates, _ := newWalletFixture(false, acc)
	require.NoError(t, rates.Set(context.Background(), dec("50")))
	accs.xpFail = errors.New("xp store down")

	res, err := engine.Recharge(context.Background(), model.RechargeRequest{
		Cedula:   "V-104",
		AmountBs: dec("100"),
	})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(dec("2")))
}

func TestTransferConservation(t *testing.T) {
	sender := testAccount("V-200", "100")
	receiver := testAccount("V-201", "20")
	engine, accs, wallet, _, _ := newWalletFixture(false, sender, receiver)

	res, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-201",
		Amount:         dec("30"),
		Concept:        "Almuerzo",
	})
	require.NoError(t, err)

	assert.True(t, res.NewBalance.Equal(dec("70")))
	assert.True(t, res.Commission.IsZero(), "p2p commission disabled by default")

	s, _ := accs.GetByID(context.Background(), sender.ID)
	r, _ := accs.GetByID(context.Background(), receiver.ID)
	assert.True(t, s.Balance.Equal(dec("70")))
	assert.True(t, r.Balance.Equal(dec("50")))
	// Sum of balances unchanged: nothing minted, nothing burned.
	assert.True(t, s.Balance.Add(r.Balance).Equal(dec("120")))

	require.Len(t, wallet.txns, 1)
	assert.Equal(t, "Almuerzo", wallet.txns[0].Concept)
	assert.Equal(t, int64(xpPerTransfer), s.XP)
}

func TestTransferDefaultConcept(t *testing.T) {
	sender := testAccount("V-202", "50")
	receiver := testAccount("V-203", "0")
	engine, _, wallet, _, _ := newWalletFixture(false, sender, receiver)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-203",
		Amount:         dec("10"),
	})
	require.NoError(t, err)
	require.Len(t, wallet.txns, 1)
	assert.Equal(t, "Transferencia", wallet.txns[0].Concept)
}

func TestTransferInsufficientFunds(t *testing.T) {
	sender := testAccount("V-204", "10")
	receiver := testAccount("V-205", "0")
	engine, accs, wallet, _, bus := newWalletFixture(false, sender, receiver)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-205",
		Amount:         dec("25"),
	})

	var insufficientErr *model.InsufficientFundsError
	require.ErrorAs(t, err, &insufficientErr)
	assert.True(t, insufficientErr.Required.Equal(dec("25")))
	assert.True(t, insufficientErr.Available.Equal(dec("10")))
	assert.True(t, insufficientErr.Shortfall().Equal(dec("15")))

	// Nothing moved, nothing recorded, nothing published.
	s, _ := accs.GetByID(context.Background(), sender.ID)
	r, _ := accs.GetByID(context.Background(), receiver.ID)
	assert.True(t, s.Balance.Equal(dec("10")))
	assert.True(t, r.Balance.IsZero())
	assert.Empty(t, wallet.txns)
	assert.Empty(t, bus.published)
}

func TestTransferSelf(t *testing.T) {
	sender := testAccount("V-206", "100")
	engine, _, wallet, _, _ := newWalletFixture(false, sender)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-206",
		Amount:         dec("10"),
	})
	assert.ErrorIs(t, err, model.ErrSelfTransfer)
	assert.Empty(t, wallet.txns)
}

func TestTransferUnknownParties(t *testing.T) {
	sender := testAccount("V-207", "100")
	engine, _, _, _, _ := newWalletFixture(false, sender)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       uuid.New(),
		ReceiverCedula: "V-207",
		Amount:         dec("10"),
	})
	assert.ErrorIs(t, err, model.ErrSenderNotFound)

	_, err = engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-404",
		Amount:         dec("10"),
	})
	assert.ErrorIs(t, err, model.ErrReceiverNotFound)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	sender := testAccount("V-208", "100")
	receiver := testAccount("V-209", "0")
	engine, _, _, _, _ := newWalletFixture(false, sender, receiver)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-209",
		Amount:         decimal.Zero,
	})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestTransferPinVerification(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)

	sender := testAccount("V-210", "100")
	sender.PinHash = string(hash)
	receiver := testAccount("V-211", "0")
	engine, _, wallet, _, _ := newWalletFixture(false, sender, receiver)

	_, err = engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-211",
		Amount:         dec("10"),
		Pin:            "9999",
	})
	assert.ErrorIs(t, err, model.ErrBadPin)
	assert.Empty(t, wallet.txns)

	_, err = engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-211",
		Amount:         dec("10"),
		Pin:            "1234",
	})
	assert.NoError(t, err)
	assert.Len(t, wallet.txns, 1)
}

func TestTransferSkipsPinWhenUnset(t *testing.T) {
	sender := testAccount("V-212", "100")
	receiver := testAccount("V-213", "0")
	engine, _, _, _, _ := newWalletFixture(false, sender, receiver)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-213",
		Amount:         dec("10"),
		Pin:            "whatever",
	})
	assert.NoError(t, err)
}

func TestTransferCommissionWhenPolicyEnabled(t *testing.T) {
	sender := testAccount("V-214", "105")
	receiver := testAccount("V-215", "0")
	engine, accs, _, _, _ := newWalletFixture(true, sender, receiver)

	res, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-215",
		Amount:         dec("100"),
	})
	require.NoError(t, err)

	// Standard tier pays 5%: sender charged 105, receiver gets 100.
	assert.True(t, res.Commission.Equal(dec("5")), "commission = %s", res.Commission)
	assert.True(t, res.NewBalance.IsZero())

	r, _ := accs.GetByID(context.Background(), receiver.ID)
	assert.True(t, r.Balance.Equal(dec("100")), "commission never reaches the receiver")
}

func TestTransferPremiumCommission(t *testing.T) {
	sender := testAccount("V-216", "102")
	sender.Tier = model.TierPremium
	receiver := testAccount("V-217", "0")
	engine, _, _, _, _ := newWalletFixture(true, sender, receiver)

	res, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-217",
		Amount:         dec("100"),
	})
	require.NoError(t, err)
	assert.True(t, res.Commission.Equal(dec("2")), "commission = %s", res.Commission)
}

func TestTransferCommissionFailOpen(t *testing.T) {
	sender := testAccount("V-218", "100")
	receiver := testAccount("V-219", "0")
	engine, accs, _, _, _ := newWalletFixture(true, sender, receiver)
	engine.calc = func(decimal.Decimal, model.Tier) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("calculator down")
	}

	res, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-219",
		Amount:         dec("100"),
	})
	require.NoError(t, err, "a broken calculator must not block transfers")
	assert.True(t, res.Commission.IsZero())

	s, _ := accs.GetByID(context.Background(), sender.ID)
	assert.True(t, s.Balance.IsZero(), "only the amount was charged")
}

func TestTransferPublishesNotification(t *testing.T) {
	sender := testAccount("V-220", "100")
	receiver := testAccount("V-221", "0")
	engine, _, _, _, bus := newWalletFixture(false, sender, receiver)

	_, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-221",
		Amount:         dec("10"),
	})
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.Equal(t, TopicNotifications, bus.topics[0])

	var event model.NotificationEvent
	require.NoError(t, json.Unmarshal(bus.published[0], &event))
	assert.Equal(t, receiver.ID, event.UserID)
	assert.Equal(t, "payment_received", event.Type)
	assert.Contains(t, event.Message, sender.Name)
}

func TestTransferBusFailureDoesNotFailTransfer(t *testing.T) {
	sender := testAccount("V-222", "100")
	receiver := testAccount("V-223", "0")
	engine, _, _, _, bus := newWalletFixture(false, sender, receiver)
	bus.failErr = errors.New("nats down")

	res, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-223",
		Amount:         dec("10"),
	})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(dec("90")))
}

func TestTransferDrainToZero(t *testing.T) {
	sender := testAccount("V-224", "50")
	receiver := testAccount("V-225", "0")
	engine, accs, _, _, _ := newWalletFixture(false, sender, receiver)

	res, err := engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-225",
		Amount:         dec("50"),
	})
	require.NoError(t, err, "transferring the exact balance is allowed")
	assert.True(t, res.NewBalance.IsZero())

	_, err = engine.Transfer(context.Background(), model.TransferRequest{
		SenderID:       sender.ID,
		ReceiverCedula: "V-225",
		Amount:         dec("0.01"),
	})
	var insufficientErr *model.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficientErr)

	s, _ := accs.GetByID(context.Background(), sender.ID)
	assert.True(t, s.Balance.IsZero())
}

func TestSetRateValidation(t *testing.T) {
	engine, _, _, rates, _ := newWalletFixture(false)

	assert.ErrorIs(t, engine.SetRate(context.Background(), decimal.Zero), model.ErrInvalidAmount)
	assert.ErrorIs(t, engine.SetRate(context.Background(), dec("-1")), model.ErrInvalidAmount)

	require.NoError(t, engine.SetRate(context.Background(), dec("36.5")))
	got, err := engine.GetRate(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("36.5")))
	assert.True(t, rates.set)
}
