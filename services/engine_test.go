package services

import (
	"sync"
	"testing"
	"time"

	"github.com/grandebingo/bingo90-backend/models"

	"github.com/stretchr/testify/require"
)

// stubStore keeps persistence in memory, mirroring the Store contract.
type stubStore struct {
	mu    sync.Mutex
	users map[string]models.User
	txs   []models.Transaction
}

func newStubStore() *stubStore {
	return &stubStore{users: make(map[string]models.User)}
}

func (s *stubStore) ListUsers() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubStore) SaveUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *stubStore) CreateTransaction(tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, *tx)
	return nil
}

func (s *stubStore) SaveEvent(ev *models.GameEvent) error { return nil }
func (s *stubStore) SaveCards(cards []models.Card) error  { return nil }
func (s *stubStore) SaveSeries(sr *models.Series) error   { return nil }
func (s *stubStore) ClearCards() error                    { return nil }

func (s *stubStore) transactionsOf(userID string, t models.TransactionType) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// recorder captures broadcast events in emission order.
type recorder struct {
	mu     sync.Mutex
	events []WSMessage
}

func (r *recorder) Broadcast(event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, WSMessage{Event: event, Data: data})
}

func (r *recorder) ballsDrawn() []BallDrawnPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BallDrawnPayload
	for _, e := range r.events {
		if e.Event == EvBallDrawn {
			out = append(out, e.Data.(BallDrawnPayload))
		}
	}
	return out
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *stubStore, *recorder) {
	t.Helper()
	store := newStubStore()
	rec := &recorder{}
	e := NewEngine(store, rec)
	return e, store, rec
}

func registerPlayer(t *testing.T, e *Engine, whatsapp string) models.User {
	t.Helper()
	u, err := e.RegisterUser("Maria", whatsapp, "secret", "")
	require.NoError(t, err)
	require.EqualValues(t, WelcomeBalance, u.Balance)
	return u
}

// runToFinish draws until the session resolves.
func runToFinish(t *testing.T, e *Engine) models.GameEvent {
	t.Helper()
	for i := 0; i < BingoMaxBalls; i++ {
		if err := e.DrawBall(); err != nil {
			break
		}
		if e.Snapshot().Event.Status == models.StatusFinished {
			break
		}
	}
	ev := e.Snapshot().Event
	require.Equal(t, models.StatusFinished, ev.Status)
	return ev
}

func TestRegisterAndAuthenticate(t *testing.T) {
	e, _, _ := newTestEngine(t)

	u := registerPlayer(t, e, "5511988887777")

	_, err := e.RegisterUser("Other", "5511988887777", "x", "")
	require.ErrorIs(t, err, ErrUserExists)

	got, err := e.Authenticate("5511988887777", "secret")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = e.Authenticate("5511988887777", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.Authenticate("unknown", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStartGame_Preconditions(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")

	require.ErrorIs(t, e.StartGame(), ErrNoCards)

	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)

	require.NoError(t, e.StartGame())
	snap := e.Snapshot()
	require.Equal(t, models.StatusRunning, snap.Event.Status)
	require.Empty(t, snap.Event.DrawnBalls)
	require.Empty(t, snap.Event.Winners)
	require.Equal(t, models.PrizeQuadra, snap.Event.CurrentPrizeStep)

	require.ErrorIs(t, e.StartGame(), ErrWrongStatus)
}

func TestPurchaseSeries_DebitsAndGenerates(t *testing.T) {
	e, store, _ := newTestEngine(t)
	registerPlayer(t, e, "111")

	u, err := e.PurchaseSeries("111", 2)
	require.NoError(t, err)
	require.EqualValues(t, 180, u.Balance) // 200 - 2 series at price 10

	snap := e.Snapshot()
	require.Len(t, snap.Cards, 12)
	for _, c := range snap.Cards {
		require.Equal(t, "111", c.UserID)
	}

	purchases := store.transactionsOf("111", models.PurchaseTransaction)
	require.Len(t, purchases, 1)
	require.EqualValues(t, -20, purchases[0].Amount)
	require.EqualValues(t, 180, purchases[0].BalanceAfter)
}

func TestPurchaseSeries_InsufficientBalance(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.Withdraw("111", 175)
	require.NoError(t, err)

	// 3 series cost 30, balance is 25
	_, err = e.PurchaseSeries("111", 3)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	u, err := e.GetUser("111")
	require.NoError(t, err)
	require.EqualValues(t, 25, u.Balance)
	require.Empty(t, e.Snapshot().Cards)
}

func TestPurchaseSeries_OnlyDuringSetup(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	_, err = e.PurchaseSeries("111", 1)
	require.ErrorIs(t, err, ErrWrongStatus)
}

func TestDrawBall_RequiresRunning(t *testing.T) {
	e, _, _ := newTestEngine(t)
	require.ErrorIs(t, e.DrawBall(), ErrWrongStatus)
}

func TestFullSession_TierProgression(t *testing.T) {
	e, store, _ := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	ev := runToFinish(t, e)

	require.Len(t, ev.Winners, 3)
	require.Equal(t, models.PrizeQuadra, ev.Winners[0].Prize)
	require.Equal(t, models.PrizeQuina, ev.Winners[1].Prize)
	require.Contains(t, []models.PrizeType{models.PrizeBingo, models.PrizeAccumulated}, ev.Winners[2].Prize)
	for _, w := range ev.Winners {
		require.Equal(t, "Maria", w.UserName)
		require.NotEmpty(t, w.CardID)
	}
	require.True(t, ev.Winners[0].BallCount <= ev.Winners[1].BallCount)
	require.True(t, ev.Winners[1].BallCount <= ev.Winners[2].BallCount)

	// drawn balls never repeat and never exceed the pool
	require.LessOrEqual(t, len(ev.DrawnBalls), BingoMaxBalls)
	seen := make(map[int]bool)
	for _, b := range ev.DrawnBalls {
		require.False(t, seen[b], "ball %d drawn twice", b)
		require.GreaterOrEqual(t, b, 1)
		require.LessOrEqual(t, b, BingoMaxBalls)
		seen[b] = true
	}

	// markings stay a subset of card numbers and drawn balls, no duplicates
	for _, c := range e.Snapshot().Cards {
		marks := make(map[int]bool)
		for _, m := range c.Marked {
			require.False(t, marks[m])
			marks[m] = true
			require.Contains(t, c.Numbers, m)
			require.True(t, seen[m])
		}
	}

	// one series at price 10: 0.83 + 2.00 + 5.00, plus 0.17 if accumulated
	expected := 7.83
	if ev.Winners[2].Prize == models.PrizeAccumulated {
		expected = 8.00
	}
	op, err := e.GetUser(OperatorID)
	require.NoError(t, err)
	require.InDelta(t, expected, op.Balance, 0.001)

	payouts := store.transactionsOf(OperatorID, models.PayoutTransaction)
	require.Len(t, payouts, 1, "payout must fire exactly once")

	// the session is terminal: no further draws, no second payout
	require.ErrorIs(t, e.DrawBall(), ErrWrongStatus)
	op, _ = e.GetUser(OperatorID)
	require.InDelta(t, expected, op.Balance, 0.001)
}

func TestFinalPayout_TwoSeries(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 2)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	ev := runToFinish(t, e)

	// revenue 20: 20*(25+60+150)/300 = 15.67; the accumulated share adds
	// 20*5/300 = 0.33 when that tier was won
	expected := 15.67
	if ev.Winners[len(ev.Winners)-1].Prize == models.PrizeAccumulated {
		expected = 16.00
	}
	op, err := e.GetUser(OperatorID)
	require.NoError(t, err)
	require.InDelta(t, expected, op.Balance, 0.001)
}

func TestEventOrder_WinnersBeforeBall(t *testing.T) {
	e, _, rec := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())
	runToFinish(t, e)

	names := rec.names()
	winners := 0
	for i, name := range names {
		if name == EvWinners {
			winners++
			require.Less(t, i+1, len(names))
			require.Equal(t, EvBallDrawn, names[i+1], "winnersAnnounced must be followed by its ballDrawn")
		}
	}
	require.Equal(t, 3, winners)
}

func TestDrawBall_BroadcastOrderUnderContention(t *testing.T) {
	e, _, rec := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	// draws race from many goroutines, as manual commands do against the
	// auto-draw timer
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := e.DrawBall(); err != nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	// every ballDrawn must carry a strictly longer drawn-balls list than the
	// one before it: observers never see state regress
	payloads := rec.ballsDrawn()
	require.NotEmpty(t, payloads)
	for i, p := range payloads {
		require.Len(t, p.Event.DrawnBalls, i+1)
		require.Equal(t, p.Ball, p.Event.DrawnBalls[i])
	}
}

func TestSetAutoDraw_Idempotent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")

	require.ErrorIs(t, e.SetAutoDraw(true), ErrWrongStatus)

	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	e.drawInterval = time.Hour // keep the ticker quiet for this test

	require.NoError(t, e.SetAutoDraw(true))
	e.mu.Lock()
	first := e.drawCancel
	e.mu.Unlock()
	require.NotNil(t, first)

	// enabling again must keep the one running timer
	require.NoError(t, e.SetAutoDraw(true))
	e.mu.Lock()
	second := e.drawCancel
	on := e.autoOn
	e.mu.Unlock()
	require.True(t, on)
	require.True(t, first == second, "second enable must not replace the timer")

	require.NoError(t, e.SetAutoDraw(false))
	e.mu.Lock()
	require.Nil(t, e.drawCancel)
	require.False(t, e.autoOn)
	e.mu.Unlock()

	// disabling without a timer is a no-op
	require.NoError(t, e.SetAutoDraw(false))
}

func TestAutoDraw_RunsSessionToFinish(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	e.drawInterval = 2 * time.Millisecond
	require.NoError(t, e.SetAutoDraw(true))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e.Snapshot().Event.Status == models.StatusFinished {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	ev := e.Snapshot().Event
	require.Equal(t, models.StatusFinished, ev.Status)
	require.Len(t, ev.Winners, 3)

	// finishing cancels the timer
	e.mu.Lock()
	require.False(t, e.autoOn)
	require.Nil(t, e.drawCancel)
	e.mu.Unlock()
}

func TestResetEvent_PreservesConfiguration(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")

	_, err := e.UpdateConfig(7, models.StartAuto, 2)
	require.NoError(t, err)

	_, err = e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())
	runToFinish(t, e)

	require.NoError(t, e.ResetEvent())

	snap := e.Snapshot()
	require.Equal(t, models.StatusSetup, snap.Event.Status)
	require.Empty(t, snap.Event.DrawnBalls)
	require.Empty(t, snap.Event.Winners)
	require.Equal(t, models.PrizeQuadra, snap.Event.CurrentPrizeStep)
	require.Empty(t, snap.Cards)

	// configuration survives the reset
	require.EqualValues(t, 7, snap.Event.CardPrice)
	require.Equal(t, models.StartAuto, snap.Event.StartMode)
	require.Equal(t, 2, snap.Event.AutoInterval)
	require.NotNil(t, snap.Event.NextAutoStart)
	require.True(t, snap.Event.NextAutoStart.After(time.Now()))
}

func TestUpdateConfig_OnlyDuringSetup(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerPlayer(t, e, "111")
	_, err := e.PurchaseSeries("111", 1)
	require.NoError(t, err)
	require.NoError(t, e.StartGame())

	_, err = e.UpdateConfig(5, models.StartManual, 1)
	require.ErrorIs(t, err, ErrWrongStatus)
}

func TestOnlineCount(t *testing.T) {
	e, _, rec := newTestEngine(t)

	require.Equal(t, 1, e.ClientConnected())
	require.Equal(t, 2, e.ClientConnected())
	require.Equal(t, 1, e.ClientDisconnected())
	require.Equal(t, 0, e.ClientDisconnected())
	require.Equal(t, 0, e.ClientDisconnected()) // never negative

	require.Equal(t, 0, e.Snapshot().Event.OnlineCount) // snapshot reflects the live count
	names := rec.names()
	require.GreaterOrEqual(t, len(names), 5)
	for _, n := range names {
		require.Equal(t, EvOnlineCount, n)
	}
}

func TestDeposit_RecordsTransaction(t *testing.T) {
	e, store, _ := newTestEngine(t)
	registerPlayer(t, e, "111")

	u, err := e.AddBalance("111", 50)
	require.NoError(t, err)
	require.EqualValues(t, 250, u.Balance)

	deposits := store.transactionsOf("111", models.DepositTransaction)
	require.Len(t, deposits, 1)
	require.EqualValues(t, 50, deposits[0].Amount)

	_, err = e.AddBalance("111", -5)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.AddBalance("ghost", 10)
	require.ErrorIs(t, err, ErrUserNotFound)
}
