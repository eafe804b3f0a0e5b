package services

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/grandebingo/bingo90-backend/models"
	"github.com/grandebingo/bingo90-backend/utils/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DrawInterval     = 4 * time.Second
	DefaultCardPrice = 10
	DefaultMaxCards  = 1000
	WelcomeBalance   = 200

	// OperatorID is the house account credited with the prize pool when a
	// session finishes.
	OperatorID = "operator"

	payoutBase = 300
)

// prize pool fractions, in 300ths of total revenue
var prizeShares = map[models.PrizeType]int64{
	models.PrizeQuadra:      25,
	models.PrizeQuina:       60,
	models.PrizeBingo:       150,
	models.PrizeAccumulated: 5,
}

// Engine is the draw authority: the single writer of the game record, the
// card pool and participant balances. Every operation takes the mutex, runs
// to completion and releases it, so at most one mutation is ever in flight.
//
// Broadcasts go out before the mutex is released, so the broadcaster sees
// events in the exact order mutations committed. Broadcast must never block
// and never call back into the engine.
type Engine struct {
	mu    sync.Mutex
	store Store
	bc    Broadcaster

	event     models.GameEvent
	cards     []models.Card
	series    []models.Series
	users     map[string]*models.User
	seriesSeq int

	autoOn       bool
	drawCancel   chan struct{}
	drawInterval time.Duration
	onlineCount  int
}

// Game is the process-wide engine, set by InitEngine.
var Game *Engine

func InitEngine(store Store, bc Broadcaster) *Engine {
	Game = NewEngine(store, bc)
	return Game
}

func NewEngine(store Store, bc Broadcaster) *Engine {
	e := &Engine{
		store:        store,
		bc:           bc,
		event:        defaultEvent(),
		users:        make(map[string]*models.User),
		drawInterval: DrawInterval,
	}

	users, err := store.ListUsers()
	if err != nil {
		logger.Errorf("loading users: %v", err)
	}
	for i := range users {
		u := users[i]
		e.users[u.ID] = &u
	}
	if _, ok := e.users[OperatorID]; !ok {
		op := &models.User{ID: OperatorID, Name: "Operator", Whatsapp: OperatorID, CreatedAt: time.Now()}
		e.users[OperatorID] = op
		e.persistUserLocked(op)
	}

	logger.Infof("engine initialized with %d users", len(e.users))
	return e
}

func defaultEvent() models.GameEvent {
	return models.GameEvent{
		ID:               "GLOBAL_BINGO_SESSION",
		Name:             "Grande Bingo",
		CardPrice:        DefaultCardPrice,
		MaxCards:         DefaultMaxCards,
		Status:           models.StatusSetup,
		CurrentPrizeStep: models.PrizeQuadra,
		DrawnBalls:       []int{},
		Winners:          []models.WinnerRecord{},
		StartMode:        models.StartManual,
		AutoInterval:     5,
		CreatedAt:        time.Now(),
	}
}

// -------------------- Participants --------------------

func (e *Engine) RegisterUser(name, whatsapp, password, pixKey string) (models.User, error) {
	e.mu.Lock()
	if _, ok := e.users[whatsapp]; ok {
		e.mu.Unlock()
		return models.User{}, ErrUserExists
	}
	u := &models.User{
		ID:        whatsapp,
		Name:      name,
		Whatsapp:  whatsapp,
		Password:  password,
		PixKey:    pixKey,
		Balance:   WelcomeBalance,
		CreatedAt: time.Now(),
	}
	e.users[whatsapp] = u
	e.persistUserLocked(u)
	out := *u
	e.bc.Broadcast(EvUsersUpdate, e.usersSnapshotLocked())
	e.mu.Unlock()

	logger.Infof("registered user %s", whatsapp)
	return out, nil
}

func (e *Engine) Authenticate(whatsapp, password string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[whatsapp]
	if !ok || u.Password != password {
		return models.User{}, ErrInvalidCredentials
	}
	return *u, nil
}

func (e *Engine) GetUser(id string) (models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return *u, nil
}

// AddBalance is the external top-up path. It runs through the engine lock
// like every other balance mutation.
func (e *Engine) AddBalance(userID string, amount float64) (models.User, error) {
	if amount <= 0 {
		return models.User{}, ErrInvalidAmount
	}
	e.mu.Lock()
	u, ok := e.users[userID]
	if !ok {
		e.mu.Unlock()
		return models.User{}, ErrUserNotFound
	}
	u.Balance, _ = decimal.NewFromFloat(u.Balance).Add(decimal.NewFromFloat(amount)).Round(2).Float64()
	e.persistUserLocked(u)
	e.recordTransactionLocked(u.ID, models.DepositTransaction, amount, u.Balance)
	out := *u
	e.bc.Broadcast(EvUsersUpdate, e.usersSnapshotLocked())
	e.mu.Unlock()

	return out, nil
}

func (e *Engine) Withdraw(userID string, amount float64) (models.User, error) {
	if amount <= 0 {
		return models.User{}, ErrInvalidAmount
	}
	e.mu.Lock()
	u, ok := e.users[userID]
	if !ok {
		e.mu.Unlock()
		return models.User{}, ErrUserNotFound
	}
	bal := decimal.NewFromFloat(u.Balance)
	amt := decimal.NewFromFloat(amount)
	if bal.LessThan(amt) {
		e.mu.Unlock()
		return models.User{}, ErrInsufficientBalance
	}
	u.Balance, _ = bal.Sub(amt).Round(2).Float64()
	e.persistUserLocked(u)
	e.recordTransactionLocked(u.ID, models.WithdrawTransaction, -amount, u.Balance)
	out := *u
	e.bc.Broadcast(EvUsersUpdate, e.usersSnapshotLocked())
	e.mu.Unlock()

	return out, nil
}

// -------------------- Purchases --------------------

// PurchaseSeries debits the buyer and appends qty series (6 cards each) to
// the global pool. Valid only during SETUP; a rejected purchase leaves
// balance and card pool untouched.
func (e *Engine) PurchaseSeries(userID string, qty int) (models.User, error) {
	if qty < 1 {
		return models.User{}, ErrInvalidAmount
	}
	e.mu.Lock()
	if e.event.Status != models.StatusSetup {
		e.mu.Unlock()
		return models.User{}, ErrWrongStatus
	}
	u, ok := e.users[userID]
	if !ok {
		e.mu.Unlock()
		return models.User{}, ErrUserNotFound
	}
	cost := decimal.NewFromFloat(e.event.CardPrice).Mul(decimal.NewFromInt(int64(qty)))
	bal := decimal.NewFromFloat(u.Balance)
	if bal.LessThan(cost) {
		e.mu.Unlock()
		return models.User{}, ErrInsufficientBalance
	}
	if len(e.cards)+qty*CardsPerSeries > e.event.MaxCards {
		e.mu.Unlock()
		return models.User{}, ErrMaxCards
	}

	u.Balance, _ = bal.Sub(cost).Round(2).Float64()
	for i := 0; i < qty; i++ {
		e.seriesSeq++
		s, cards := GenerateSeries(userID, e.seriesSeq, FormatPackageID(e.seriesSeq))
		e.series = append(e.series, s)
		e.cards = append(e.cards, cards...)
		if err := e.store.SaveSeries(&s); err != nil {
			logger.Errorf("persist series %s: %v", s.ID, err)
		}
	}
	e.persistUserLocked(u)
	e.persistCardsLocked()
	costF, _ := cost.Float64()
	e.recordTransactionLocked(u.ID, models.PurchaseTransaction, -costF, u.Balance)

	out := *u
	total := len(e.cards)
	e.bc.Broadcast(EvCardsUpdate, e.cardsSnapshotLocked())
	e.bc.Broadcast(EvUsersUpdate, e.usersSnapshotLocked())
	e.mu.Unlock()

	logger.Infof("user %s bought %d series (%d cards total)", userID, qty, total)
	return out, nil
}

// -------------------- Session lifecycle --------------------

// StartGame moves SETUP -> RUNNING. Requires at least one sold card; the
// drawn-balls and winner lists start empty and the prize step resets.
func (e *Engine) StartGame() error {
	e.mu.Lock()
	if e.event.Status != models.StatusSetup {
		e.mu.Unlock()
		return ErrWrongStatus
	}
	if len(e.cards) == 0 {
		e.mu.Unlock()
		return ErrNoCards
	}
	e.event.Status = models.StatusRunning
	e.event.DrawnBalls = []int{}
	e.event.Winners = []models.WinnerRecord{}
	e.event.CurrentPrizeStep = models.PrizeQuadra
	e.event.NextAutoStart = nil
	e.persistEventLocked()
	total := len(e.cards)
	e.bc.Broadcast(EvGameStarted, e.cloneEventLocked())
	e.mu.Unlock()

	logger.Infof("game started with %d cards", total)
	return nil
}

// DrawBall draws one ball, marks it on every card holding it, and lets the
// detector decide whether the active prize step resolves. The first
// qualifying card in pool order wins the step.
func (e *Engine) DrawBall() error {
	e.mu.Lock()
	if e.event.Status != models.StatusRunning {
		e.mu.Unlock()
		return ErrWrongStatus
	}
	if len(e.event.DrawnBalls) >= BingoMaxBalls {
		wasOn := e.autoOn
		e.stopAutoLocked()
		if wasOn {
			e.bc.Broadcast(EvAutoStatus, false)
		}
		e.mu.Unlock()
		// unreachable if BINGO resolves by ball 90; treated as a data problem
		logger.Error("ball pool exhausted without resolving the session")
		return ErrPoolExhausted
	}

	drawn := make(map[int]bool, len(e.event.DrawnBalls))
	for _, b := range e.event.DrawnBalls {
		drawn[b] = true
	}
	available := make([]int, 0, BingoMaxBalls-len(drawn))
	for n := 1; n <= BingoMaxBalls; n++ {
		if !drawn[n] {
			available = append(available, n)
		}
	}
	ball := available[rand.Intn(len(available))]
	e.event.DrawnBalls = append(e.event.DrawnBalls, ball)

	for i := range e.cards {
		card := &e.cards[i]
		if containsInt(card.Numbers, ball) && !containsInt(card.Marked, ball) {
			card.Marked = append(card.Marked, ball)
		}
	}

	var record *models.WinnerRecord
	autoWasOn := false
	if candidates := CheckWinners(e.cards, e.event.DrawnBalls, e.event.CurrentPrizeStep); len(candidates) > 0 {
		first := candidates[0]
		rec := models.WinnerRecord{
			Prize:     first.Prize,
			CardID:    first.CardID,
			UserName:  e.ownerNameLocked(first.CardID),
			BallCount: len(e.event.DrawnBalls),
			Timestamp: time.Now(),
		}
		e.event.Winners = append(e.event.Winners, rec)
		record = &rec
		if i := e.cardIndexLocked(first.CardID); i >= 0 {
			e.cards[i].IsWinner = true
			e.cards[i].WonPrizes = append(e.cards[i].WonPrizes, first.Prize)
		}

		switch e.event.CurrentPrizeStep {
		case models.PrizeQuadra:
			e.event.CurrentPrizeStep = models.PrizeQuina
		case models.PrizeQuina:
			e.event.CurrentPrizeStep = models.PrizeBingo
		default:
			// BINGO (or its ACCUMULATED framing) ends the session
			e.event.Status = models.StatusFinished
			autoWasOn = e.autoOn
			e.stopAutoLocked()
			e.settleLocked()
		}
	}

	e.persistEventLocked()
	e.persistCardsLocked()
	ev := e.cloneEventLocked()
	if record != nil {
		e.bc.Broadcast(EvWinners, []models.WinnerRecord{*record})
	}
	e.bc.Broadcast(EvBallDrawn, BallDrawnPayload{Ball: ball, Event: ev})
	if ev.Status == models.StatusFinished {
		if autoWasOn {
			e.bc.Broadcast(EvAutoStatus, false)
		}
		e.bc.Broadcast(EvUsersUpdate, e.usersSnapshotLocked())
	}
	e.mu.Unlock()
	return nil
}

// settleLocked credits the operator with the prize pool, exactly once, at
// the SETUP->...->FINISHED transition. Revenue counts whole series only;
// each share is rounded to cents before summing. The ACCUMULATED share is
// added only when that tier was actually won.
func (e *Engine) settleLocked() {
	revenue := decimal.NewFromInt(int64(len(e.cards) / CardsPerSeries)).
		Mul(decimal.NewFromFloat(e.event.CardPrice))
	share := func(p models.PrizeType) decimal.Decimal {
		return revenue.Mul(decimal.NewFromInt(prizeShares[p])).
			Div(decimal.NewFromInt(payoutBase)).Round(2)
	}

	credit := share(models.PrizeQuadra).Add(share(models.PrizeQuina)).Add(share(models.PrizeBingo))
	for _, w := range e.event.Winners {
		if w.Prize == models.PrizeAccumulated {
			credit = credit.Add(share(models.PrizeAccumulated))
			break
		}
	}

	op, ok := e.users[OperatorID]
	if !ok {
		logger.Error("operator account missing, payout skipped")
		return
	}
	amount, _ := credit.Float64()
	op.Balance, _ = decimal.NewFromFloat(op.Balance).Add(credit).Round(2).Float64()
	e.persistUserLocked(op)
	e.recordTransactionLocked(op.ID, models.PayoutTransaction, amount, op.Balance)
	logger.Infof("session finished after %d balls, operator credited %.2f", len(e.event.DrawnBalls), amount)
}

// SetAutoDraw toggles the recurring draw timer. Enabling twice keeps the one
// running timer; disabling without a timer is a no-op. The cancel channel is
// closed synchronously, so a cancelled timer can never fire another draw.
func (e *Engine) SetAutoDraw(enabled bool) error {
	e.mu.Lock()
	if enabled {
		if e.event.Status != models.StatusRunning {
			e.mu.Unlock()
			return ErrWrongStatus
		}
		if !e.autoOn {
			e.autoOn = true
			e.drawCancel = make(chan struct{})
			go e.autoDrawLoop(e.drawCancel)
		}
	} else {
		e.stopAutoLocked()
	}
	e.bc.Broadcast(EvAutoStatus, e.autoOn)
	e.mu.Unlock()

	return nil
}

func (e *Engine) stopAutoLocked() {
	if e.drawCancel != nil {
		close(e.drawCancel)
		e.drawCancel = nil
	}
	e.autoOn = false
}

func (e *Engine) autoDrawLoop(cancel chan struct{}) {
	ticker := time.NewTicker(e.drawInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			if err := e.DrawBall(); err != nil {
				// the session left RUNNING under us; the timer dies with it
				_ = e.SetAutoDraw(false)
				return
			}
		}
	}
}

// ResetEvent rebuilds the game record from defaults, clearing balls, winners
// and cards while keeping price, start mode and interval. The only way back
// to SETUP.
func (e *Engine) ResetEvent() error {
	e.mu.Lock()
	autoWasOn := e.autoOn
	e.stopAutoLocked()

	prev := e.event
	e.event = defaultEvent()
	e.event.Name = prev.Name
	e.event.CardPrice = prev.CardPrice
	e.event.MaxCards = prev.MaxCards
	e.event.StartMode = prev.StartMode
	e.event.AutoInterval = prev.AutoInterval
	if e.event.StartMode == models.StartAuto {
		next := time.Now().Add(time.Duration(e.event.AutoInterval) * time.Minute)
		e.event.NextAutoStart = &next
	}
	e.cards = nil
	e.series = nil

	if err := e.store.ClearCards(); err != nil {
		logger.Errorf("clearing cards: %v", err)
	}
	e.persistEventLocked()
	if autoWasOn {
		e.bc.Broadcast(EvAutoStatus, false)
	}
	e.bc.Broadcast(EvGameReset, e.cloneEventLocked())
	e.bc.Broadcast(EvCardsUpdate, []models.Card{})
	e.mu.Unlock()

	logger.Info("event reset to SETUP")
	return nil
}

// UpdateConfig changes pricing and scheduling, never gameplay state.
func (e *Engine) UpdateConfig(price float64, mode models.StartMode, interval int) (models.GameEvent, error) {
	if price <= 0 || interval < 1 {
		return models.GameEvent{}, ErrInvalidAmount
	}
	if mode != models.StartManual && mode != models.StartAuto {
		return models.GameEvent{}, ErrInvalidAmount
	}
	e.mu.Lock()
	if e.event.Status != models.StatusSetup {
		e.mu.Unlock()
		return models.GameEvent{}, ErrWrongStatus
	}
	e.event.CardPrice = price
	e.event.StartMode = mode
	e.event.AutoInterval = interval
	if mode == models.StartAuto {
		next := time.Now().Add(time.Duration(interval) * time.Minute)
		e.event.NextAutoStart = &next
	} else {
		e.event.NextAutoStart = nil
	}
	e.persistEventLocked()
	ev := e.cloneEventLocked()
	e.bc.Broadcast(EvEventUpdate, ev)
	e.mu.Unlock()

	return ev, nil
}

// -------------------- Observers --------------------

func (e *Engine) ClientConnected() int {
	e.mu.Lock()
	e.onlineCount++
	n := e.onlineCount
	e.bc.Broadcast(EvOnlineCount, n)
	e.mu.Unlock()
	return n
}

func (e *Engine) ClientDisconnected() int {
	e.mu.Lock()
	if e.onlineCount > 0 {
		e.onlineCount--
	}
	n := e.onlineCount
	e.bc.Broadcast(EvOnlineCount, n)
	e.mu.Unlock()
	return n
}

// Snapshot returns a consistent copy of the full session state for the
// connect-time initialState event.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Event: e.cloneEventLocked(),
		Cards: e.cardsSnapshotLocked(),
		Users: e.usersSnapshotLocked(),
	}
}

// -------------------- Internals --------------------

func (e *Engine) cloneEventLocked() models.GameEvent {
	ev := e.event
	ev.DrawnBalls = append([]int(nil), e.event.DrawnBalls...)
	ev.Winners = append([]models.WinnerRecord(nil), e.event.Winners...)
	ev.OnlineCount = e.onlineCount
	return ev
}

func (e *Engine) cardsSnapshotLocked() []models.Card {
	out := make([]models.Card, len(e.cards))
	for i, c := range e.cards {
		c.Marked = append([]int(nil), c.Marked...)
		c.WonPrizes = append([]models.PrizeType(nil), c.WonPrizes...)
		out[i] = c
	}
	return out
}

func (e *Engine) usersSnapshotLocked() []models.User {
	out := make([]models.User, 0, len(e.users))
	for _, u := range e.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) cardIndexLocked(cardID string) int {
	for i := range e.cards {
		if e.cards[i].ID == cardID {
			return i
		}
	}
	return -1
}

func (e *Engine) ownerNameLocked(cardID string) string {
	if i := e.cardIndexLocked(cardID); i >= 0 {
		if u, ok := e.users[e.cards[i].UserID]; ok {
			return u.Name
		}
	}
	return "Participante"
}

func (e *Engine) persistUserLocked(u *models.User) {
	if err := e.store.SaveUser(u); err != nil {
		logger.Errorf("persist user %s: %v", u.ID, err)
	}
}

func (e *Engine) persistEventLocked() {
	if err := e.store.SaveEvent(&e.event); err != nil {
		logger.Errorf("persist event: %v", err)
	}
}

func (e *Engine) persistCardsLocked() {
	if err := e.store.SaveCards(e.cards); err != nil {
		logger.Errorf("persist cards: %v", err)
	}
}

func (e *Engine) recordTransactionLocked(userID string, t models.TransactionType, amount, balanceAfter float64) {
	tx := models.Transaction{
		Reference:    uuid.NewString(),
		UserID:       userID,
		Type:         t,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}
	if err := e.store.CreateTransaction(&tx); err != nil {
		logger.Errorf("record %s transaction for %s: %v", t, userID, err)
	}
}

func containsInt(nums []int, n int) bool {
	for _, v := range nums {
		if v == n {
			return true
		}
	}
	return false
}
