package broker

import (
	"context"
	"strconv"
	"strings"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/meridianlab/meridian-trading/internal/logger"
	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/internal/utils"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

const (
	// binanceDecimalPrecision allows satoshi-level quantities. Symbol
	// specific LOT_SIZE filters would be stricter in production.
	binanceDecimalPrecision = 8

	// quoteAsset is the settlement currency on the exchange. USD symbols
	// are traded against USDT at par.
	quoteAsset = "USDT"
)

// Service interfaces for mocking the Binance API.

// AccountService fetches the spot account snapshot.
type AccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// CreateOrderService builds and submits a single order.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	StopPrice(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// ListPricesService fetches the latest price for every listed symbol.
type ListPricesService interface {
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// BinanceAPI abstracts the Binance client for testing.
type BinanceAPI interface {
	NewGetAccountService() AccountService
	NewCreateOrderService() CreateOrderService
	NewListPricesService() ListPricesService
}

// BinanceConfig carries the exchange credentials and endpoint selection.
type BinanceConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	// BaseURL overrides the endpoint and takes precedence over UseTestnet.
	BaseURL    string `yaml:"base_url" json:"base_url"`
	UseTestnet bool   `yaml:"use_testnet" json:"use_testnet"`
}

// BinanceBroker implements Broker on the Binance spot API. It is
// stateless; account state is fetched on every call.
type BinanceBroker struct {
	client BinanceAPI
	log    *logger.Logger
}

func NewBinanceBroker(config BinanceConfig, log *logger.Logger) *BinanceBroker {
	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceBroker{
		client: &realBinanceAPI{client: client},
		log:    log,
	}
}

// newBinanceBrokerWithClient is used by tests to inject a mock API.
func newBinanceBrokerWithClient(client BinanceAPI, log *logger.Logger) *BinanceBroker {
	return &BinanceBroker{
		client: client,
		log:    log,
	}
}

// AccountEquity values every spot balance in the quote asset. Assets
// without a listed pair against the quote asset are skipped.
func (b *BinanceBroker) AccountEquity(ctx context.Context) (float64, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeExternalServiceFailure, "failed to get account info from Binance", err)
	}

	prices, err := b.listPrices(ctx)
	if err != nil {
		return 0, err
	}

	equity := 0.0

	for _, balance := range account.Balances {
		total := balanceTotal(balance)
		if total <= 0 {
			continue
		}

		if balance.Asset == quoteAsset {
			equity += total

			continue
		}

		price, ok := prices[balance.Asset+quoteAsset]
		if !ok {
			if b.log != nil {
				b.log.Debug("skipping unpriced asset", zap.String("asset", balance.Asset))
			}

			continue
		}

		equity += total * price
	}

	return equity, nil
}

// OpenPositions reports every non-quote balance with a listed pair as a
// long position. Spot balances carry no entry price, so positions are
// marked at the current price.
func (b *BinanceBroker) OpenPositions(ctx context.Context) ([]types.Position, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExternalServiceFailure, "failed to get account info from Binance", err)
	}

	prices, err := b.listPrices(ctx)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0)

	for _, balance := range account.Balances {
		total := balanceTotal(balance)
		if total <= 0 || balance.Asset == quoteAsset {
			continue
		}

		price, ok := prices[balance.Asset+quoteAsset]
		if !ok {
			continue
		}

		positions = append(positions, types.Position{
			Symbol:     balance.Asset + "/USD",
			Side:       types.PositionSideLong,
			Quantity:   total,
			EntryPrice: price,
		})
	}

	return positions, nil
}

// SubmitMarketOrderWithStop executes the market entry, then places a
// stop loss limit and a take profit limit on the opposite side for the
// same quantity. Protective levels of zero are skipped.
func (b *BinanceBroker) SubmitMarketOrderWithStop(ctx context.Context, order MarketOrder) error {
	quantity := utils.RoundToDecimalPrecision(order.Quantity, binanceDecimalPrecision)
	if quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "order quantity %.8f is not positive after rounding", order.Quantity)
	}

	symbol, err := exchangeSymbol(order.Symbol)
	if err != nil {
		return err
	}

	entrySide, exitSide, err := orderSides(order.Side)
	if err != nil {
		return err
	}

	quantityStr := formatQuantity(quantity)

	_, err = b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(entrySide).
		Type(binance.OrderTypeMarket).
		Quantity(quantityStr).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place market order for %s", order.Symbol)
	}

	if order.StopLossPrice > 0 {
		_, err = b.client.NewCreateOrderService().
			Symbol(symbol).
			Side(exitSide).
			Type(binance.OrderTypeStopLossLimit).
			Quantity(quantityStr).
			Price(formatPrice(order.StopLossPrice)).
			StopPrice(formatPrice(order.StopLossPrice)).
			TimeInForce(binance.TimeInForceTypeGTC).
			Do(ctx)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place stop loss for %s", order.Symbol)
		}
	}

	if order.TakeProfitPrice > 0 {
		_, err = b.client.NewCreateOrderService().
			Symbol(symbol).
			Side(exitSide).
			Type(binance.OrderTypeTakeProfitLimit).
			Quantity(quantityStr).
			Price(formatPrice(order.TakeProfitPrice)).
			StopPrice(formatPrice(order.TakeProfitPrice)).
			TimeInForce(binance.TimeInForceTypeGTC).
			Do(ctx)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place take profit for %s", order.Symbol)
		}
	}

	if b.log != nil {
		b.log.Info("submitted market order",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Float64("quantity", quantity),
			zap.Float64("stop_loss", order.StopLossPrice),
			zap.Float64("take_profit", order.TakeProfitPrice),
		)
	}

	return nil
}

// ClosePosition flattens the position with a market order on the
// opposite side.
func (b *BinanceBroker) ClosePosition(ctx context.Context, position types.Position) error {
	quantity := utils.RoundToDecimalPrecision(position.Quantity, binanceDecimalPrecision)
	if quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "position quantity %.8f is not positive after rounding", position.Quantity)
	}

	symbol, err := exchangeSymbol(position.Symbol)
	if err != nil {
		return err
	}

	_, exitSide, err := orderSides(position.Side)
	if err != nil {
		return err
	}

	_, err = b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(exitSide).
		Type(binance.OrderTypeMarket).
		Quantity(formatQuantity(quantity)).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to close position %s", position.Symbol)
	}

	if b.log != nil {
		b.log.Info("closed position",
			zap.String("symbol", position.Symbol),
			zap.Float64("quantity", quantity),
		)
	}

	return nil
}

func (b *BinanceBroker) listPrices(ctx context.Context) (map[string]float64, error) {
	listed, err := b.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExternalServiceFailure, "failed to list prices from Binance", err)
	}

	prices := make(map[string]float64, len(listed))

	for _, p := range listed {
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}

		prices[p.Symbol] = price
	}

	return prices, nil
}

func balanceTotal(balance binance.Balance) float64 {
	free, _ := strconv.ParseFloat(balance.Free, 64)
	locked, _ := strconv.ParseFloat(balance.Locked, 64)

	return free + locked
}

func orderSides(side types.PositionSide) (entry, exit binance.SideType, err error) {
	switch side {
	case types.PositionSideLong:
		return binance.SideTypeBuy, binance.SideTypeSell, nil
	case types.PositionSideShort:
		return binance.SideTypeSell, binance.SideTypeBuy, nil
	default:
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported position side: %s", side)
	}
}

// exchangeSymbol converts BASE/QUOTE to the Binance spot notation, with
// USD traded as USDT.
func exchangeSymbol(symbol string) (string, error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || base == "" || quote == "" {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "symbol must be in BASE/QUOTE format: %q", symbol)
	}

	if strings.EqualFold(quote, "USD") {
		quote = quoteAsset
	}

	return strings.ToUpper(base + quote), nil
}

func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', binanceDecimalPrecision, 64)
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// Real client wrappers.

type realBinanceAPI struct {
	client *binance.Client
}

func (r *realBinanceAPI) NewGetAccountService() AccountService {
	return &realAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceAPI) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceAPI) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

type realAccountService struct {
	service *binance.GetAccountService
}

func (s *realAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) StopPrice(price string) CreateOrderService {
	s.service = s.service.StopPrice(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}
