// Package api exposes the portfolio service over HTTP: trade capture,
// position and history views, accounting settings, and the options
// analytics endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/costbasis"
	"github.com/quantfolio/portfolio-service/internal/marketdata"
	"github.com/quantfolio/portfolio-service/internal/metrics"
	"github.com/quantfolio/portfolio-service/internal/models"
	"github.com/quantfolio/portfolio-service/internal/options"
	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

const dateLayout = "2006-01-02"

// Store is the persistence surface the handlers depend on.
type Store interface {
	CreateTradeEvent(t *models.TradeEvent) error
	GetTradeEvents() ([]models.TradeEvent, error)
	GetTradeEventsBySymbol(symbol string) ([]models.TradeEvent, error)
	TradeEventExistsByOrderRef(orderRef, source string) (bool, error)
	DeleteTradeEvent(id int) error
	GetTradedSymbols() ([]string, error)

	GetMethodOverrides() (map[string]costbasis.Method, error)
	UpsertMethodOverride(symbol string, method costbasis.Method) error
	DeleteMethodOverride(symbol string) error

	GetCloseSeries(symbol string, startDate, endDate time.Time) ([]models.PricePoint, error)
	UpsertPriceBarBatch(bars []*models.PriceBar) error

	GetSnapshotRange(startDate, endDate time.Time) ([]portfolio.Snapshot, error)
	UpsertSnapshotBatch(snapshots []portfolio.Snapshot) error
}

// EventPublisher pushes portfolio events to Kafka. A nil publisher
// disables publishing.
type EventPublisher interface {
	PublishTradeRecorded(ctx context.Context, t *models.TradeEvent) error
	PublishPositionUpdated(ctx context.Context, symbol string) error
	PublishSnapshotComputed(ctx context.Context, snap portfolio.Snapshot) error
}

// SummaryBroadcaster pushes live updates to connected clients. A nil
// broadcaster disables them.
type SummaryBroadcaster interface {
	BroadcastSummary(summary portfolio.Summary)
	BroadcastPositionUpdated(symbol string)
}

// Options tunes the handlers from configuration.
type Options struct {
	DefaultMethod    costbasis.Method
	RiskFreeRate     float64
	FetchConcurrency int
	FetchDelay       time.Duration
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store       Store
	provider    marketdata.Provider
	producer    EventPublisher
	broadcaster SummaryBroadcaster
	opts        Options

	// The default accounting method is mutable through the settings
	// endpoint; per-symbol overrides live in the store.
	mu            sync.RWMutex
	defaultMethod costbasis.Method
}

// NewHandler creates a new Handler
func NewHandler(store Store, provider marketdata.Provider, producer EventPublisher, broadcaster SummaryBroadcaster, opts Options) *Handler {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	return &Handler{
		store:         store,
		provider:      provider,
		producer:      producer,
		broadcaster:   broadcaster,
		opts:          opts,
		defaultMethod: opts.DefaultMethod,
	}
}

// RecordTrade handles POST /trades
func (h *Handler) RecordTrade(w http.ResponseWriter, r *http.Request) {
	var trade models.TradeEvent
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := normalizeTrade(&trade); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if trade.OrderRef != "" {
		exists, err := h.store.TradeEventExistsByOrderRef(trade.OrderRef, trade.Source)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if exists {
			http.Error(w, "trade with this order_ref already recorded", http.StatusConflict)
			return
		}
	}

	if err := h.store.CreateTradeEvent(&trade); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishTradeRecorded(r.Context(), &trade); err != nil {
			log.Printf("Failed to publish trade recorded event: %v", err)
		}
		if err := h.producer.PublishPositionUpdated(r.Context(), trade.Symbol); err != nil {
			log.Printf("Failed to publish position updated event: %v", err)
		}
	}
	h.notifyPositionChanged(trade.Symbol)

	respondJSON(w, http.StatusCreated, trade)
}

// normalizeTrade validates a submitted trade and fills derivable
// fields. Quantities and prices are magnitudes; direction comes from
// the kind.
func normalizeTrade(t *models.TradeEvent) error {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if t.Symbol == "" {
		return errors.New("symbol is required")
	}
	t.Kind = strings.ToUpper(strings.TrimSpace(t.Kind))
	if !models.ValidTradeKind(t.Kind) {
		return fmt.Errorf("invalid kind: %s", t.Kind)
	}
	if t.Quantity.Sign() < 0 || t.PricePerUnit.Sign() < 0 || t.TotalAmount.Sign() < 0 || t.Fees.Sign() < 0 {
		return errors.New("quantity, price_per_unit, total_amount, and fees must not be negative")
	}

	switch t.Kind {
	case models.TradeKindBuy, models.TradeKindSell:
		if t.Quantity.Sign() <= 0 {
			return errors.New("quantity must be positive")
		}
		if t.TotalAmount.IsZero() {
			t.TotalAmount = t.Quantity.Mul(t.PricePerUnit)
		}
	case models.TradeKindOptionPremium:
		od := t.OptionDetails
		if od == nil {
			return errors.New("option_details is required for OPTION_PREMIUM")
		}
		od.Action = strings.ToUpper(strings.TrimSpace(od.Action))
		if !models.ValidOptionAction(od.Action) {
			return fmt.Errorf("invalid option action: %s", od.Action)
		}
		if od.Contracts.Sign() <= 0 {
			return errors.New("contracts must be positive")
		}
		if od.PremiumPerContract.Sign() < 0 {
			return errors.New("premium_per_contract must not be negative")
		}
		if t.TotalAmount.IsZero() {
			t.TotalAmount = od.Contracts.Mul(od.PremiumPerContract).Mul(decimal.NewFromInt(100))
		}
	case models.TradeKindDividend:
		if t.TotalAmount.Sign() <= 0 {
			return errors.New("total_amount must be positive for DIVIDEND")
		}
	}

	if t.Source == "" {
		t.Source = "api"
	}
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = time.Now().UTC()
	}
	return nil
}

// ListTrades handles GET /trades
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))

	var (
		trades []models.TradeEvent
		err    error
	)
	if symbol != "" {
		trades, err = h.store.GetTradeEventsBySymbol(symbol)
	} else {
		trades, err = h.store.GetTradeEvents()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.TradeEvent{}
	}
	respondJSON(w, http.StatusOK, trades)
}

// DeleteTrade handles DELETE /trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteTradeEvent(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if h.broadcaster != nil {
		go h.broadcastSummary(context.Background())
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPositions handles GET /positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summarize(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetPortfolioSummary handles GET /portfolio/summary
func (h *Handler) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	h.GetPositions(w, r)
}

// GetPosition handles GET /positions/{symbol}
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	events, err := h.store.GetTradeEventsBySymbol(symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.Error(w, "no trades recorded for symbol", http.StatusNotFound)
		return
	}

	resolver, err := h.resolver()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	quotes := make(map[string]models.Quote)
	if quote, err := h.provider.GetQuote(r.Context(), symbol); err != nil {
		log.Printf("Failed to fetch quote for %s: %v", symbol, err)
	} else {
		quotes[symbol] = quote
	}

	state := costbasis.Compute(events, resolver.Resolve(symbol))
	metrics.LedgerReplays.WithLabelValues(state.Method.String()).Inc()
	summary := portfolio.Summarize(events, resolver, quotes)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"position": state,
		"summary":  summary.Positions[0],
	})
}

// GetPositionTrades handles GET /positions/{symbol}/trades
func (h *Handler) GetPositionTrades(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	events, err := h.store.GetTradeEventsBySymbol(symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.Error(w, "no trades recorded for symbol", http.StatusNotFound)
		return
	}

	var method costbasis.Method
	if raw := r.URL.Query().Get("method"); raw != "" {
		method, err = costbasis.ParseMethod(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		resolver, err := h.resolver()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		method = resolver.Resolve(symbol)
	}

	trace := costbasis.ComputeTrace(events, method)
	metrics.LedgerReplays.WithLabelValues(method.String()).Inc()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"method": method,
		"trades": trace,
	})
}

// GetPortfolioHistory handles GET /portfolio/history. Persisted
// snapshots are served as-is; missing days are computed from the trade
// log plus close series and checkpointed so the next call is cheap.
// refresh=true recomputes the whole window.
func (h *Handler) GetPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.GetTradeEvents()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{"snapshots": []portfolio.Snapshot{}})
		return
	}

	from, to, err := historyRange(r, events)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"

	persisted, err := h.store.GetSnapshotRange(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	byDate := make(map[string]portfolio.Snapshot, len(persisted))
	if !refresh {
		for _, snap := range persisted {
			byDate[snap.Date.Format(dateLayout)] = snap
		}
	}

	var missing []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if _, ok := byDate[day.Format(dateLayout)]; !ok {
			missing = append(missing, day)
		}
	}

	if len(missing) > 0 {
		computed, err := h.computeSnapshots(r.Context(), events, from, to, missing)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, snap := range computed {
			byDate[snap.Date.Format(dateLayout)] = snap
		}
	}

	series := make([]portfolio.Snapshot, 0, len(byDate))
	for _, snap := range byDate {
		series = append(series, snap)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":      from.Format(dateLayout),
		"to":        to.Format(dateLayout),
		"snapshots": series,
	})
}

// historyRange resolves the requested window: from defaults to the
// first trade's day, to defaults to today.
func historyRange(r *http.Request, events []models.TradeEvent) (time.Time, time.Time, error) {
	earliest := events[0].ExecutedAt
	for _, ev := range events[1:] {
		if ev.ExecutedAt.Before(earliest) {
			earliest = ev.ExecutedAt
		}
	}
	from := startOfDayUTC(earliest)
	to := startOfDayUTC(time.Now())

	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %q", raw)
		}
		from = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %q", raw)
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	return from, to, nil
}

// computeSnapshots fills the missing days of the window and persists
// them. The latest computed day is announced on Kafka.
func (h *Handler) computeSnapshots(ctx context.Context, events []models.TradeEvent, from, to time.Time, missing []time.Time) ([]portfolio.Snapshot, error) {
	resolver, err := h.resolver()
	if err != nil {
		return nil, err
	}
	symbols, err := h.store.GetTradedSymbols()
	if err != nil {
		return nil, err
	}

	histories := h.loadHistories(ctx, symbols, from, to)

	computed := make([]portfolio.Snapshot, 0, len(missing))
	for _, day := range missing {
		computed = append(computed, portfolio.SnapshotAt(events, resolver, histories, day))
	}
	if err := h.store.UpsertSnapshotBatch(computed); err != nil {
		return nil, fmt.Errorf("failed to persist snapshots: %w", err)
	}
	metrics.SnapshotDaysComputed.Add(float64(len(computed)))

	if h.producer != nil {
		latest := computed[len(computed)-1]
		if err := h.producer.PublishSnapshotComputed(ctx, latest); err != nil {
			log.Printf("Failed to publish snapshot computed event: %v", err)
		}
	}
	return computed, nil
}

// loadHistories assembles per-symbol close series for the window,
// preferring stored bars and fetching from the provider only for
// symbols whose stored series stops short of the window's end. Fetched
// closes are persisted so later calls stay local.
func (h *Handler) loadHistories(ctx context.Context, symbols []string, from, to time.Time) map[string][]models.PricePoint {
	// Walk-back cushion so the window's first days can price off the
	// previous close across weekends and holidays.
	start := from.AddDate(0, 0, -7)

	histories := make(map[string][]models.PricePoint, len(symbols))
	var stale []string
	for _, symbol := range symbols {
		series, err := h.store.GetCloseSeries(symbol, start, to)
		if err != nil {
			log.Printf("Failed to load close series for %s: %v", symbol, err)
		}
		histories[symbol] = series
		if !seriesCovers(series, to) {
			stale = append(stale, symbol)
		}
	}
	if len(stale) == 0 {
		return histories
	}

	fetched := marketdata.FetchHistories(ctx, h.provider, stale, start, to, h.opts.FetchConcurrency, h.opts.FetchDelay)
	for symbol, points := range fetched {
		if len(points) == 0 {
			continue
		}
		histories[symbol] = mergeSeries(histories[symbol], points)
		if err := h.store.UpsertPriceBarBatch(barsFromPoints(symbol, points)); err != nil {
			log.Printf("Failed to persist price bars for %s: %v", symbol, err)
		}
	}
	return histories
}

// seriesCovers reports whether an ascending series reaches the target
// day, allowing slack for weekends and holidays.
func seriesCovers(points []models.PricePoint, target time.Time) bool {
	if len(points) == 0 {
		return false
	}
	return !points[len(points)-1].Date.Before(target.AddDate(0, 0, -4))
}

// mergeSeries overlays fetched points onto the stored series, fetched
// winning on date collisions, result sorted ascending.
func mergeSeries(stored, fetched []models.PricePoint) []models.PricePoint {
	byDate := make(map[string]models.PricePoint, len(stored)+len(fetched))
	for _, p := range stored {
		byDate[p.Date.Format(dateLayout)] = p
	}
	for _, p := range fetched {
		byDate[p.Date.Format(dateLayout)] = p
	}
	merged := make([]models.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

// barsFromPoints synthesizes flat daily bars from a close-only series.
func barsFromPoints(symbol string, points []models.PricePoint) []*models.PriceBar {
	bars := make([]*models.PriceBar, 0, len(points))
	for _, p := range points {
		bars = append(bars, &models.PriceBar{
			Symbol: symbol,
			Date:   p.Date,
			Open:   p.Close,
			High:   p.Close,
			Low:    p.Close,
			Close:  p.Close,
		})
	}
	return bars
}

// methodSettings is the response shape of the settings endpoints.
type methodSettings struct {
	DefaultMethod costbasis.Method            `json:"default_method"`
	Overrides     map[string]costbasis.Method `json:"overrides"`
}

// GetMethodSettings handles GET /settings/method
func (h *Handler) GetMethodSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.currentSettings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateMethodSettings handles PUT /settings/method. Without a symbol
// it sets the process-wide default; with one it stores a per-symbol
// override.
func (h *Handler) UpdateMethodSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	method, err := costbasis.ParseMethod(req.Method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		h.mu.Lock()
		h.defaultMethod = method
		h.mu.Unlock()
	} else if err := h.store.UpsertMethodOverride(symbol, method); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	settings, err := h.currentSettings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// ClearMethodOverride handles DELETE /settings/method/{symbol}
func (h *Handler) ClearMethodOverride(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if err := h.store.DeleteMethodOverride(symbol); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentSettings() (methodSettings, error) {
	overrides, err := h.store.GetMethodOverrides()
	if err != nil {
		return methodSettings{}, err
	}
	if overrides == nil {
		overrides = map[string]costbasis.Method{}
	}
	h.mu.RLock()
	def := h.defaultMethod
	h.mu.RUnlock()
	return methodSettings{DefaultMethod: def, Overrides: overrides}, nil
}

// PriceOption handles GET /options/price
func (h *Handler) PriceOption(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	spot, err := parseFloatParam(query.Get("spot"), "spot")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	strike, err := parseFloatParam(query.Get("strike"), "strike")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	days, err := parseFloatParam(query.Get("days"), "days")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	iv, err := parseFloatParam(query.Get("iv"), "iv")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rate := h.opts.RiskFreeRate
	if raw := query.Get("rate"); raw != "" {
		if rate, err = parseFloatParam(raw, "rate"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	optionType := options.Call
	if raw := query.Get("type"); raw != "" {
		optionType = strings.ToLower(raw)
		if optionType != options.Call && optionType != options.Put {
			http.Error(w, "type must be call or put", http.StatusBadRequest)
			return
		}
	}

	params := options.PricingParams{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: options.YearsFromDays(days),
		RiskFreeRate: rate,
		Volatility:   iv,
		OptionType:   optionType,
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"params": params,
		"result": options.Price(params),
	})
}

func parseFloatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

// strategyRequest is the body of POST /options/strategy/analyze.
type strategyRequest struct {
	StockPrice   float64               `json:"stock_price"`
	DaysToExpiry float64               `json:"days_to_expiry"`
	RiskFreeRate *float64              `json:"risk_free_rate,omitempty"`
	Legs         []options.StrategyLeg `json:"legs"`
}

// AnalyzeStrategy handles POST /options/strategy/analyze
func (h *Handler) AnalyzeStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateStrategy(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rate := h.opts.RiskFreeRate
	if req.RiskFreeRate != nil {
		rate = *req.RiskFreeRate
	}

	analysis := options.Analyze(req.Legs, req.StockPrice, options.YearsFromDays(req.DaysToExpiry), rate)
	respondJSON(w, http.StatusOK, analysis)
}

func validateStrategy(req strategyRequest) error {
	if req.StockPrice <= 0 {
		return errors.New("stock_price must be positive")
	}
	if req.DaysToExpiry < 0 {
		return errors.New("days_to_expiry must not be negative")
	}
	if len(req.Legs) == 0 {
		return errors.New("at least one leg is required")
	}
	for i, leg := range req.Legs {
		if leg.Side != options.SideBuy && leg.Side != options.SideSell {
			return fmt.Errorf("leg %d: side must be buy or sell", i)
		}
		if leg.OptionType != options.Call && leg.OptionType != options.Put {
			return fmt.Errorf("leg %d: option_type must be call or put", i)
		}
		if leg.Strike <= 0 {
			return fmt.Errorf("leg %d: strike must be positive", i)
		}
		if leg.Quantity <= 0 {
			return fmt.Errorf("leg %d: quantity must be positive", i)
		}
	}
	return nil
}

// ListStrategyPresets handles GET /options/strategy/presets
func (h *Handler) ListStrategyPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, options.Presets())
}

// AnalyzeStrategyPreset handles POST /options/strategy/presets/{name}.
// It resolves the preset's strike offsets against the live chain,
// prices each leg from the chain, and runs the same analysis as the
// ad-hoc endpoint.
func (h *Handler) AnalyzeStrategyPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	preset, ok := options.LookupPreset(name)
	if !ok {
		http.Error(w, "unknown preset", http.StatusNotFound)
		return
	}

	var req struct {
		Symbol       string   `json:"symbol"`
		DaysToExpiry *float64 `json:"days_to_expiry,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	quote, err := h.provider.GetQuote(r.Context(), symbol)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to fetch quote: %v", err), http.StatusBadGateway)
		return
	}
	chain, err := h.provider.GetOptionChain(r.Context(), symbol)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to fetch option chain: %v", err), http.StatusBadGateway)
		return
	}
	if len(chain.Strikes) == 0 {
		http.Error(w, "no option chain available for symbol", http.StatusNotFound)
		return
	}

	spot := quote.Price.InexactFloat64()
	legs := options.ResolvePreset(preset, spot, chain.Strikes)

	// Premium comes from the last trade, falling back to the bid/ask
	// midpoint. Expiry defaults to the nearest matched contract.
	days := 0.0
	for i := range legs {
		contract, ok := chain.ContractAt(legs[i].OptionType, legs[i].Strike)
		if !ok {
			continue
		}
		premium := contract.LastPrice
		if premium <= 0 {
			premium = contract.MidPrice()
		}
		legs[i].Premium = premium
		legs[i].ImpliedVolatility = contract.ImpliedVolatility
		if contract.DaysToExpiry > 0 && (days == 0 || float64(contract.DaysToExpiry) < days) {
			days = float64(contract.DaysToExpiry)
		}
	}
	if req.DaysToExpiry != nil {
		days = *req.DaysToExpiry
	}

	analysis := options.Analyze(legs, spot, options.YearsFromDays(days), h.opts.RiskFreeRate)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"preset":         preset,
		"symbol":         symbol,
		"stock_price":    spot,
		"days_to_expiry": days,
		"legs":           legs,
		"analysis":       analysis,
	})
}

// GetOptionChain handles GET /options/chain/{symbol}
func (h *Handler) GetOptionChain(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	chain, err := h.provider.GetOptionChain(r.Context(), symbol)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to fetch option chain: %v", err), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, chain)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// TradeIngested mirrors the live updates of an API mutation for trades
// that arrive through the Kafka consumer.
func (h *Handler) TradeIngested(t *models.TradeEvent) {
	h.notifyPositionChanged(t.Symbol)
}

// notifyPositionChanged refreshes live views after a mutation. The
// summary fan-out hits the market data provider, so it runs off the
// request path.
func (h *Handler) notifyPositionChanged(symbol string) {
	if h.broadcaster == nil {
		return
	}
	h.broadcaster.BroadcastPositionUpdated(symbol)
	go h.broadcastSummary(context.Background())
}

func (h *Handler) broadcastSummary(ctx context.Context) {
	summary, err := h.summarize(ctx)
	if err != nil {
		log.Printf("Failed to build summary for broadcast: %v", err)
		return
	}
	h.broadcaster.BroadcastSummary(summary)
}

// summarize builds the whole-portfolio view: replay the ledger per
// symbol under the resolved methods and blend in live quotes.
func (h *Handler) summarize(ctx context.Context) (portfolio.Summary, error) {
	events, err := h.store.GetTradeEvents()
	if err != nil {
		return portfolio.Summary{}, err
	}
	symbols, err := h.store.GetTradedSymbols()
	if err != nil {
		return portfolio.Summary{}, err
	}
	resolver, err := h.resolver()
	if err != nil {
		return portfolio.Summary{}, err
	}

	quotes := marketdata.FetchQuotes(ctx, h.provider, symbols, h.opts.FetchConcurrency, h.opts.FetchDelay)
	summary := portfolio.Summarize(events, resolver, quotes)
	for _, row := range summary.Positions {
		metrics.LedgerReplays.WithLabelValues(row.Method.String()).Inc()
	}
	return summary, nil
}

func (h *Handler) resolver() (portfolio.MethodResolver, error) {
	overrides, err := h.store.GetMethodOverrides()
	if err != nil {
		return portfolio.MethodResolver{}, fmt.Errorf("failed to load method overrides: %w", err)
	}
	h.mu.RLock()
	def := h.defaultMethod
	h.mu.RUnlock()
	return portfolio.MethodResolver{Default: def, Overrides: overrides}, nil
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
