package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/market"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/trading"
)

type sentMessage struct {
	chatID int64
	msg    messaging.Message
}

// recordingGateway keeps every delivered message in memory.
type recordingGateway struct {
	mu        sync.Mutex
	sent      []sentMessage
	failPhoto error
	failAll   error
}

func (g *recordingGateway) Deliver(_ context.Context, chatID int64, msg messaging.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll != nil {
		return g.failAll
	}
	if msg.IsPhoto() && g.failPhoto != nil {
		return g.failPhoto
	}
	g.sent = append(g.sent, sentMessage{chatID: chatID, msg: msg})
	return nil
}

func (g *recordingGateway) SetProfileText(context.Context, string) error { return nil }
func (g *recordingGateway) Ping(context.Context) error                  { return nil }

func (g *recordingGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

func (g *recordingGateway) texts() []string {
	var out []string
	for _, m := range g.messages() {
		out = append(out, m.msg.Text)
	}
	return out
}

func (g *recordingGateway) last(t *testing.T) messaging.Message {
	t.Helper()
	msgs := g.messages()
	require.NotEmpty(t, msgs, "nothing was sent")
	return msgs[len(msgs)-1].msg
}

func (g *recordingGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = nil
}

// MockChainClient implements blockchain.Client.
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockChainClient) SubmitTransfer(ctx context.Context, from solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	args := m.Called(ctx, from, to, lamports)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockChainClient) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, pubkey)
	return args.Get(0).(uint64), args.Error(1)
}

type fakeMarket struct {
	mu    sync.Mutex
	pairs map[string]market.PairInfo
	spot  float64
}

func (f *fakeMarket) PairInfo(_ context.Context, _, pairID string) (market.PairInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.pairs[pairID]
	if !ok {
		return market.PairInfo{}, market.ErrPairNotFound
	}
	return info, nil
}

func (f *fakeMarket) SpotPriceUSD(context.Context) float64 {
	return f.spot
}

const (
	testUser    int64 = 1001
	testPair          = "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"
	testAddress       = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

var (
	fixedNow         = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	testCounterparty = solana.MustPublicKeyFromBase58("5h2rm7GxxAbEP8cHKY1eLZ54Wb8SLF7u2SmbK7gG3J4W")
)

type harness struct {
	engine *Engine
	gw     *recordingGateway
	store  *session.Store
	chain  *MockChainClient
	market *fakeMarket
	bus    *EventBus
	events *MockEventSubscriber
}

type harnessOption func(*Config)

func withGraphic(path string) harnessOption {
	return func(c *Config) { c.GraphicPath = path }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	h := &harness{
		gw:     &recordingGateway{},
		store:  session.NewStore(logger),
		chain:  new(MockChainClient),
		market: &fakeMarket{pairs: map[string]market.PairInfo{}, spot: 100},
		bus:    NewEventBus(logger),
		events: NewMockEventSubscriber([]string{
			EventUserStarted, EventWalletConnected, EventWalletConnectFailed,
			EventSaleStep, EventTradeExecuted, EventTradeFailed,
		}),
	}
	h.bus.Subscribe(h.events)

	service := trading.NewService(trading.Config{
		Chain:        h.chain,
		Prices:       h.market,
		Store:        h.store,
		Counterparty: testCounterparty,
		Logger:       logger,
	})

	cfg := Config{
		Gateway: h.gw,
		Store:   h.store,
		Trading: service,
		Market:  h.market,
		Events:  h.bus,
		Logger:  logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h.engine = NewEngine(cfg)
	h.engine.now = func() time.Time { return fixedNow }

	t.Cleanup(h.bus.Wait)
	return h
}

func (h *harness) command(user int64, name string, args ...string) {
	h.engine.HandleEvent(context.Background(), messaging.Event{
		Kind:     messaging.EventCommand,
		UserID:   user,
		Username: "tester",
		Command:  name,
		Args:     args,
	})
}

func (h *harness) say(user int64, text string) {
	h.engine.HandleEvent(context.Background(), messaging.Event{
		Kind:     messaging.EventText,
		UserID:   user,
		Username: "tester",
		Text:     text,
	})
}

func (h *harness) tap(user int64, data string) {
	h.engine.HandleEvent(context.Background(), messaging.Event{
		Kind:         messaging.EventCallback,
		UserID:       user,
		Username:     "tester",
		CallbackID:   "cb",
		CallbackData: data,
	})
}

func (h *harness) awaiting(user int64) session.Awaiting {
	return h.store.Get(user).Awaiting
}

func (h *harness) connectWallet(t *testing.T, user int64) solana.PrivateKey {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	h.command(user, "connectwallet", key.String())
	require.True(t, h.store.Get(user).HasWallet())
	h.gw.reset()
	return key
}

func TestEngine_StartSendsWelcome(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "start")

	msg := h.gw.last(t)
	assert.Equal(t, welcomeText, msg.Text)
	assert.True(t, msg.DisablePreview)
	require.Len(t, msg.Keyboard, 1)
	assert.Equal(t, CallbackBeginAuth, msg.Keyboard[0][0].Data)
	assert.Equal(t, testUser, h.gw.messages()[0].chatID)

	h.bus.Wait()
	events := h.events.GetReceivedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserStarted, events[0].GetType())
}

func TestEngine_AuthThenPasscode(t *testing.T) {
	h := newHarness(t)

	h.command(testUser, "auth")
	assert.Equal(t, authPromptText, h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingAuth, h.awaiting(testUser))

	h.say(testUser, "RICHMINDSET")
	assert.Equal(t, authSuccessText, h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingWallet, h.awaiting(testUser))
}

func TestEngine_PasscodeMatching(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{input: "RICHMINDSET", ok: true},
		{input: "richmindset", ok: true},
		{input: "RichMindSet", ok: true},
		{input: "  RICHMINDSET\n", ok: true},
		{input: "RICHMINDSET1", ok: false},
		{input: "RICH MINDSET", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			h := newHarness(t)
			h.store.SetAwaiting(testUser, session.AwaitingAuth)

			h.say(testUser, tt.input)

			if tt.ok {
				assert.Equal(t, authSuccessText, h.gw.last(t).Text)
				assert.Equal(t, session.AwaitingWallet, h.awaiting(testUser))
			} else {
				assert.Equal(t, authFailedText, h.gw.last(t).Text)
				assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))
			}
		})
	}
}

func TestEngine_WalletAcceptedShowsPresets(t *testing.T) {
	h := newHarness(t)
	h.store.SetAwaiting(testUser, session.AwaitingWallet)

	h.say(testUser, testAddress)

	texts := h.gw.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, walletVerifiedText(testAddress), texts[0])
	assert.Equal(t, graphicFallback, texts[1])
	assert.Equal(t, selectAmountText, texts[2])

	keyboard := h.gw.last(t).Keyboard
	require.Len(t, keyboard, 3)
	var data []string
	for _, row := range keyboard {
		assert.Len(t, row, 2)
		for _, b := range row {
			data = append(data, b.Data)
		}
	}
	assert.Equal(t, []string{"sol_0.5", "sol_1.2", "sol_2.8", "sol_4.1", "sol_6.7", "sol_9.3"}, data)
	assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))
}

func TestEngine_WalletLengthBoundary(t *testing.T) {
	tests := []struct {
		length int
		ok     bool
	}{
		{length: 31, ok: false},
		{length: 32, ok: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.length), func(t *testing.T) {
			h := newHarness(t)
			h.store.SetAwaiting(testUser, session.AwaitingWallet)

			h.say(testUser, strings.Repeat("a", tt.length))

			if tt.ok {
				assert.Equal(t, selectAmountText, h.gw.last(t).Text)
			} else {
				assert.Equal(t, []string{walletFailedText}, h.gw.texts())
			}
			assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))
		})
	}
}

func TestEngine_WalletGraphic(t *testing.T) {
	t.Run("photo sent", func(t *testing.T) {
		h := newHarness(t, withGraphic("Solanavm.jpg"))
		h.store.SetAwaiting(testUser, session.AwaitingWallet)
		h.say(testUser, testAddress)

		msgs := h.gw.messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "Solanavm.jpg", msgs[1].msg.PhotoPath)
	})

	t.Run("photo fails", func(t *testing.T) {
		h := newHarness(t, withGraphic("missing.jpg"))
		h.gw.failPhoto = errors.New("no such file")
		h.store.SetAwaiting(testUser, session.AwaitingWallet)
		h.say(testUser, testAddress)

		texts := h.gw.texts()
		require.Len(t, texts, 3)
		assert.Equal(t, graphicFallback, texts[1])
	})
}

func TestEngine_VerifyLengthBoundary(t *testing.T) {
	tests := []struct {
		length int
		want   string
	}{
		{length: 63, want: verifyFailedText},
		{length: 64, want: submissionText("2025-01-02 03:04:05")},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.length), func(t *testing.T) {
			h := newHarness(t)
			h.tap(testUser, CallbackShowVerification)
			assert.Equal(t, session.AwaitingVerify, h.awaiting(testUser))

			h.say(testUser, strings.Repeat("s", tt.length))

			assert.Equal(t, tt.want, h.gw.last(t).Text)
			assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))
		})
	}
}

func TestEngine_AmountValidation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "2.5", want: amountConfirmedText(2.5)},
		{input: "abc", want: amountFormatText},
		{input: "", want: amountFormatText},
		{input: "0", want: amountInvalidText},
		{input: "-3", want: amountInvalidText},
		{input: "NaN", want: amountInvalidText},
		{input: "Inf", want: amountInvalidText},
		{input: "1e400", want: amountInvalidText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h := newHarness(t)
			h.command(testUser, "amount")
			require.Equal(t, session.AwaitingAmount, h.awaiting(testUser))

			h.say(testUser, tt.input)

			assert.Equal(t, tt.want, h.gw.last(t).Text)
			assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))
		})
	}
}

func TestEngine_AmountCallback(t *testing.T) {
	h := newHarness(t)
	h.tap(testUser, "sol_2.8")

	msg := h.gw.last(t)
	assert.Equal(t, selectedAmountText("2.8", DefaultContractAddress), msg.Text)
	require.Len(t, msg.Keyboard, 1)
	assert.Equal(t, CallbackShowVerification, msg.Keyboard[0][0].Data)
}

func TestEngine_MalformedAmountCallbackIsNoop(t *testing.T) {
	for _, data := range []string{"sol_", "sol_abc", "sol_-1", "sol_0", "sol_NaN"} {
		t.Run(data, func(t *testing.T) {
			h := newHarness(t)
			h.store.SetAwaiting(testUser, session.AwaitingVerify)

			h.tap(testUser, data)

			assert.Empty(t, h.gw.messages())
			assert.Equal(t, session.AwaitingVerify, h.awaiting(testUser))
		})
	}
}

func TestEngine_BeginAuthCallbackArmsAuth(t *testing.T) {
	h := newHarness(t)
	h.tap(testUser, CallbackBeginAuth)

	assert.Equal(t, authPromptText, h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingAuth, h.awaiting(testUser))
}

func TestEngine_UnknownCommandIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.store.SetAwaiting(testUser, session.AwaitingAuth)

	h.command(testUser, "doesnotexist")
	h.tap(testUser, "unknown_callback")

	assert.Empty(t, h.gw.messages())
	assert.Equal(t, session.AwaitingAuth, h.awaiting(testUser))
}

func TestEngine_TextWithoutPendingPromptGetsHint(t *testing.T) {
	h := newHarness(t)
	h.say(testUser, "hello")

	assert.Equal(t, []string{nothingPending}, h.gw.texts())
}

func TestEngine_CommandClearsStaleFlag(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "auth")
	h.command(testUser, "payment")
	assert.Equal(t, paymentText(DefaultDepositAddress), h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))

	h.say(testUser, "RICHMINDSET")
	assert.Equal(t, nothingPending, h.gw.last(t).Text)
}

func TestEngine_PromptingCommandReplacesFlag(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "wallet")
	h.command(testUser, "verify")
	assert.Equal(t, session.AwaitingVerify, h.awaiting(testUser))
}

func TestEngine_BalanceRequiresWallet(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "balance")

	assert.Equal(t, []string{noWalletText}, h.gw.texts())
	h.chain.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
}

func TestEngine_Balance(t *testing.T) {
	h := newHarness(t)
	key := h.connectWallet(t, testUser)
	h.chain.On("GetBalance", mock.Anything, key.PublicKey()).Return(uint64(2_500_000_000), nil)

	h.command(testUser, "balance")

	text := h.gw.last(t).Text
	assert.Contains(t, text, key.PublicKey().String())
	assert.Contains(t, text, "`2.5 SOL` (≈ $250.00)")
	h.chain.AssertExpectations(t)
}

func TestEngine_ConnectWallet(t *testing.T) {
	h := newHarness(t)
	key := solana.NewWallet().PrivateKey

	h.command(testUser, "connectwallet", key.String())

	sess := h.store.Get(testUser)
	require.True(t, sess.HasWallet())
	assert.Equal(t, key.PublicKey(), sess.Wallet.PublicKey)
	assert.Equal(t, "✅ Wallet connected!\nWallet: 🟢 "+sess.Wallet.Masked(), h.gw.last(t).Text)

	h.bus.Wait()
	events := h.events.GetReceivedEvents()
	require.Len(t, events, 1)
	connected, ok := events[0].(WalletConnectedEvent)
	require.True(t, ok)
	assert.Equal(t, sess.Wallet.Masked(), connected.MaskedWallet)
	for _, text := range h.gw.texts() {
		assert.NotContains(t, text, key.String(), "secret key must never be echoed")
	}
}

func TestEngine_ConnectWalletPrompted(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "connectwallet")
	assert.Equal(t, connectPromptText, h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingConnectWallet, h.awaiting(testUser))

	key := solana.NewWallet().PrivateKey
	h.say(testUser, key.String())
	assert.Equal(t, key.PublicKey(), h.store.Get(testUser).Wallet.PublicKey)
}

func TestEngine_ConnectWalletInvalidLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		reason string
	}{
		{name: "not base58", secret: "0OIl-not-base58", reason: "the key is not valid base58"},
		{name: "wrong length", secret: testAddress, reason: "the key must decode to 64 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			previous := h.connectWallet(t, testUser)

			h.command(testUser, "connectwallet", tt.secret)

			assert.Equal(t, "❌ Error connecting wallet: "+tt.reason, h.gw.last(t).Text)
			assert.Equal(t, previous.PublicKey(), h.store.Get(testUser).Wallet.PublicKey)
		})
	}
}

func TestEngine_SetPairAndPrice(t *testing.T) {
	h := newHarness(t)
	h.market.pairs[testPair] = market.PairInfo{PriceUSD: 1.5, HasPrice: true, IconURL: "https://cdn.example.com/icon.png"}

	h.command(testUser, "price")
	assert.Equal(t, noPairText, h.gw.last(t).Text)

	h.command(testUser, "setpair", testPair)
	assert.Equal(t, testPair, h.store.Get(testUser).SelectedPair)

	h.gw.reset()
	h.command(testUser, "price")

	msgs := h.gw.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].msg.Text, "`1.500000 USD`")
	assert.Equal(t, "https://cdn.example.com/icon.png", msgs[1].msg.PhotoURL)
}

func TestEngine_PriceUnavailable(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "setpair", "unknownpair")
	h.command(testUser, "price")
	assert.Equal(t, priceMissingText, h.gw.last(t).Text)
}

func TestEngine_IconFailureIsOnlyLogged(t *testing.T) {
	h := newHarness(t)
	h.market.pairs[testPair] = market.PairInfo{PriceUSD: 2, HasPrice: true, IconURL: "https://cdn.example.com/icon.png"}
	h.gw.failPhoto = errors.New("bad photo")

	h.command(testUser, "setpair", testPair)
	h.gw.reset()
	h.command(testUser, "price")

	assert.Len(t, h.gw.messages(), 1)
}

func TestEngine_AlertRegistration(t *testing.T) {
	h := newHarness(t)

	h.command(testUser, "alert", "50")
	alert := h.store.Get(testUser).Alert
	require.NotNil(t, alert)
	assert.Equal(t, 50.0, alert.Threshold)

	h.command(testUser, "alert", "abc")
	assert.Equal(t, alertInvalidText, h.gw.last(t).Text)
	assert.Equal(t, 50.0, h.store.Get(testUser).Alert.Threshold)

	h.command(testUser, "alert")
	assert.Equal(t, session.AwaitingAlertPrice, h.awaiting(testUser))
	h.say(testUser, "75")
	assert.Equal(t, 75.0, h.store.Get(testUser).Alert.Threshold)
}

func TestEngine_BuyAndPositions(t *testing.T) {
	h := newHarness(t)
	key := h.connectWallet(t, testUser)
	h.market.pairs[testPair] = market.PairInfo{PriceUSD: 2, HasPrice: true}
	h.command(testUser, "setpair", testPair)

	sig := solana.Signature{1, 2, 3}
	h.chain.On("SubmitTransfer", mock.Anything, key, testCounterparty, uint64(500_000_000)).Return(sig, nil).Once()

	h.command(testUser, "buy", "0.5")

	assert.Contains(t, h.gw.last(t).Text, "Purchase executed")
	assert.Contains(t, h.gw.last(t).Text, sig.String())
	positions := h.store.Get(testUser).Positions
	require.Len(t, positions, 1)
	assert.Equal(t, 2.0, positions[0].PurchasePrice)

	h.market.pairs[testPair] = market.PairInfo{PriceUSD: 3, HasPrice: true}
	h.command(testUser, "positions")
	text := h.gw.last(t).Text
	assert.Contains(t, text, "*PnL:* `0.50 USD`")
	assert.Contains(t, text, "*Total PnL:* `0.50 USD`")
	h.chain.AssertExpectations(t)
}

func TestEngine_BuyFailures(t *testing.T) {
	tests := []struct {
		name      string
		submitErr error
		want      string
		event     bool
	}{
		{
			name:      "insufficient funds",
			submitErr: fmt.Errorf("submit: %w", blockchain.ErrInsufficientFunds),
			want:      "💸 Insufficient funds for purchase.",
			event:     true,
		},
		{
			name:      "generic",
			submitErr: errors.New("node unavailable"),
			want:      "❌ Error during purchase: node unavailable",
			event:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.connectWallet(t, testUser)
			h.market.pairs[testPair] = market.PairInfo{PriceUSD: 2, HasPrice: true}
			h.command(testUser, "setpair", testPair)
			h.chain.On("SubmitTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(solana.Signature{}, tt.submitErr)

			h.command(testUser, "buy", "1")

			assert.Equal(t, tt.want, h.gw.last(t).Text)
			assert.Empty(t, h.store.Get(testUser).Positions)

			h.bus.Wait()
			var failed []TradeFailedEvent
			for _, ev := range h.events.GetReceivedEvents() {
				if f, ok := ev.(TradeFailedEvent); ok {
					failed = append(failed, f)
				}
			}
			require.Len(t, failed, 1)
			assert.Equal(t, errors.Is(tt.submitErr, blockchain.ErrInsufficientFunds), failed[0].InsufficientFunds)
		})
	}
}

func TestEngine_BuyPreconditions(t *testing.T) {
	h := newHarness(t)

	h.command(testUser, "buy", "1")
	assert.Equal(t, noWalletText, h.gw.last(t).Text)

	h.connectWallet(t, testUser)
	h.command(testUser, "buy", "1")
	assert.Equal(t, noPairText, h.gw.last(t).Text)

	h.command(testUser, "setpair", "unpriced")
	h.command(testUser, "buy", "1")
	assert.Contains(t, h.gw.last(t).Text, "Could not retrieve the pair price")

	h.chain.AssertNotCalled(t, "SubmitTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_BuyPromptedAmount(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "buy")
	assert.Equal(t, buyUsageText, h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingBuyAmount, h.awaiting(testUser))

	h.say(testUser, "lots")
	assert.Equal(t, amountFormatText, h.gw.last(t).Text)
	assert.Equal(t, session.AwaitingNone, h.awaiting(testUser))
}

func TestEngine_SellLeavesPositions(t *testing.T) {
	h := newHarness(t)
	h.connectWallet(t, testUser)
	h.store.AddPosition(testUser, session.Position{Pair: testPair, Amount: 1, PurchasePrice: 1})
	h.chain.On("SubmitTransfer", mock.Anything, mock.Anything, testCounterparty, uint64(250_000_000)).
		Return(solana.Signature{9}, nil)

	h.command(testUser, "sell")
	h.say(testUser, "0.25")

	assert.Contains(t, h.gw.last(t).Text, "Sale executed")
	assert.Len(t, h.store.Get(testUser).Positions, 1)
}

func TestEngine_Portfolio(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "portfolio")
	assert.Equal(t, "Connect wallet first using /connectwallet", h.gw.last(t).Text)

	key := h.connectWallet(t, testUser)
	h.chain.On("GetBalance", mock.Anything, key.PublicKey()).Return(uint64(1_000_000_000), nil)
	h.command(testUser, "portfolio")

	text := h.gw.last(t).Text
	assert.Contains(t, text, "SOL Balance: `1.0000`")
	assert.Contains(t, text, "Total PnL: `0.00 USD`")
	assert.Contains(t, text, "Active Positions: `0`")
}

func TestEngine_SniperV1(t *testing.T) {
	h := newHarness(t)
	token := solana.NewWallet().PublicKey().String()

	h.command(testUser, "sniper_v1")
	assert.Contains(t, h.gw.last(t).Text, "Active Snipers: 0")
	assert.Equal(t, session.AwaitingSniperV1Address, h.awaiting(testUser))

	h.say(testUser, token)
	h.command(testUser, "sniper_v1")
	h.say(testUser, token)
	sniper := h.store.Get(testUser).Sniper
	require.NotNil(t, sniper)
	assert.Equal(t, []string{token}, sniper.V1Targets)
	assert.Equal(t, "v1", sniper.Version)

	h.command(testUser, "sniper_v1")
	h.say(testUser, "not-an-address")
	assert.Contains(t, h.gw.last(t).Text, "Invalid token address")
	assert.Len(t, h.store.Get(testUser).Sniper.V1Targets, 1)
}

func TestEngine_SniperInfoRecordsVersion(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "sniper_pumpfun")
	assert.Equal(t, sniperPumpfunText, h.gw.last(t).Text)
	assert.Equal(t, "pumpfun", h.store.Get(testUser).Sniper.Version)
}

func TestEngine_DCA(t *testing.T) {
	h := newHarness(t)

	h.command(testUser, "dcastart")
	assert.Equal(t, dcaMissingText, h.gw.last(t).Text)

	h.command(testUser, "setpair", testPair)
	h.command(testUser, "dcasettings", "0.5", "60")
	dca := h.store.Get(testUser).DCA
	require.NotNil(t, dca)
	assert.Equal(t, 0.5, dca.Amount)
	assert.Equal(t, time.Hour, dca.Interval)
	assert.Equal(t, testPair, dca.Pair)
	assert.False(t, dca.Active)

	h.command(testUser, "dcastart")
	assert.True(t, h.store.Get(testUser).DCA.Active)
	h.command(testUser, "dcastop")
	assert.False(t, h.store.Get(testUser).DCA.Active)

	h.command(testUser, "dcasettings")
	assert.Equal(t, session.AwaitingDCASettings, h.awaiting(testUser))
	h.say(testUser, "0.5")
	assert.Equal(t, dcaInvalidText, h.gw.last(t).Text)
}

func TestEngine_DCAIntervalBounds(t *testing.T) {
	tests := []struct {
		name    string
		minutes string
		want    time.Duration
	}{
		{name: "one year", minutes: "525600", want: 365 * 24 * time.Hour},
		{name: "above one year", minutes: "525601"},
		{name: "overflowing", minutes: "200000000"},
		{name: "zero", minutes: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.command(testUser, "dcasettings", "1", tt.minutes)

			dca := h.store.Get(testUser).DCA
			if tt.want == 0 {
				assert.Nil(t, dca)
				assert.Equal(t, dcaInvalidText, h.gw.last(t).Text)
				return
			}
			require.NotNil(t, dca)
			assert.Equal(t, tt.want, dca.Interval)
		})
	}
}

func TestEngine_Tools(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "tools", "Trailing_Stop", "percent=5", "mode=fast")

	tool := h.store.Get(testUser).Tool
	require.NotNil(t, tool)
	assert.Equal(t, "trailing_stop", tool.Name)
	assert.Equal(t, map[string]string{"percent": "5", "mode": "fast"}, tool.Settings)
	assert.Equal(t, "✅ Tool `trailing_stop` selected\n\n• `mode` = `fast`\n• `percent` = `5`", h.gw.last(t).Text)

	h.command(testUser, "tools")
	h.say(testUser, "bad name!")
	assert.Equal(t, toolsInvalidText, h.gw.last(t).Text)
}

func TestEngine_HelpListsCommands(t *testing.T) {
	h := newHarness(t)
	h.command(testUser, "help")

	text := h.gw.last(t).Text
	for _, name := range []string{"start", "auth", "connectwallet", "buy", "sniper_v1", "tools"} {
		assert.Contains(t, text, "/"+name+" - ")
	}
}

func TestEngine_DeliveryFailureKeepsTurnAlive(t *testing.T) {
	h := newHarness(t)
	h.gw.failAll = errors.New("blocked by user")

	assert.NotPanics(t, func() { h.command(testUser, "auth") })
	assert.Equal(t, session.AwaitingAuth, h.awaiting(testUser))
}

func TestEngine_ConcurrentUsers(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			h.command(user, "auth")
			h.say(user, "RICHMINDSET")
			h.say(user, testAddress)
		}(i + 1)
	}
	wg.Wait()

	assert.Equal(t, 20, h.store.Len())
	for i := int64(1); i <= 20; i++ {
		assert.Equal(t, session.AwaitingNone, h.awaiting(i))
	}
	assert.Len(t, h.gw.messages(), 20*5)
}
