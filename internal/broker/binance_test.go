package broker

import (
	"context"
	"testing"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/suite"

	"github.com/meridianlab/meridian-trading/internal/types"
	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// recordedOrder captures the builder state of a submitted order.
type recordedOrder struct {
	symbol      string
	side        binance.SideType
	orderType   binance.OrderType
	quantity    string
	price       string
	stopPrice   string
	timeInForce binance.TimeInForceType
}

type mockBinanceAPI struct {
	account    *binance.Account
	accountErr error
	prices     []*binance.SymbolPrice
	pricesErr  error
	orders     []recordedOrder
	orderErr   error
}

func (m *mockBinanceAPI) NewGetAccountService() AccountService {
	return &mockAccountService{api: m}
}

func (m *mockBinanceAPI) NewCreateOrderService() CreateOrderService {
	return &mockCreateOrderService{api: m}
}

func (m *mockBinanceAPI) NewListPricesService() ListPricesService {
	return &mockListPricesService{api: m}
}

type mockAccountService struct {
	api *mockBinanceAPI
}

func (s *mockAccountService) Do(_ context.Context) (*binance.Account, error) {
	return s.api.account, s.api.accountErr
}

type mockListPricesService struct {
	api *mockBinanceAPI
}

func (s *mockListPricesService) Do(_ context.Context) ([]*binance.SymbolPrice, error) {
	return s.api.prices, s.api.pricesErr
}

type mockCreateOrderService struct {
	api   *mockBinanceAPI
	order recordedOrder
}

func (s *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.order.symbol = symbol

	return s
}

func (s *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.order.side = side

	return s
}

func (s *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.order.orderType = orderType

	return s
}

func (s *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.order.quantity = quantity

	return s
}

func (s *mockCreateOrderService) Price(price string) CreateOrderService {
	s.order.price = price

	return s
}

func (s *mockCreateOrderService) StopPrice(price string) CreateOrderService {
	s.order.stopPrice = price

	return s
}

func (s *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.order.timeInForce = tif

	return s
}

func (s *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	if s.api.orderErr != nil {
		return nil, s.api.orderErr
	}

	s.api.orders = append(s.api.orders, s.order)

	return &binance.CreateOrderResponse{}, nil
}

type BinanceBrokerTestSuite struct {
	suite.Suite
	api    *mockBinanceAPI
	broker *BinanceBroker
}

func TestBinanceBrokerSuite(t *testing.T) {
	suite.Run(t, new(BinanceBrokerTestSuite))
}

func (suite *BinanceBrokerTestSuite) SetupTest() {
	suite.api = &mockBinanceAPI{
		account: &binance.Account{
			Balances: []binance.Balance{
				{Asset: "BTC", Free: "0.5", Locked: "0.1"},
				{Asset: "USDT", Free: "1000", Locked: "0"},
				{Asset: "DOGE", Free: "50", Locked: "0"},
				{Asset: "ETH", Free: "0", Locked: "0"},
			},
		},
		prices: []*binance.SymbolPrice{
			{Symbol: "BTCUSDT", Price: "20000"},
			{Symbol: "ETHUSDT", Price: "3000"},
		},
	}
	suite.broker = newBinanceBrokerWithClient(suite.api, nil)
}

func (suite *BinanceBrokerTestSuite) TestAccountEquity() {
	// 0.6 BTC at 20000 plus 1000 USDT; DOGE has no listed pair and is
	// skipped, ETH balance is zero.
	equity, err := suite.broker.AccountEquity(context.Background())
	suite.NoError(err)
	suite.InDelta(13000.0, equity, 1e-9)
}

func (suite *BinanceBrokerTestSuite) TestAccountEquityFailure() {
	suite.api.accountErr = errors.New(errors.ErrCodeUnknown, "boom")

	_, err := suite.broker.AccountEquity(context.Background())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeExternalServiceFailure))
}

func (suite *BinanceBrokerTestSuite) TestOpenPositions() {
	positions, err := suite.broker.OpenPositions(context.Background())
	suite.NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal("BTC/USD", positions[0].Symbol)
	suite.Equal(types.PositionSideLong, positions[0].Side)
	suite.InDelta(0.6, positions[0].Quantity, 1e-9)
	suite.InDelta(20000.0, positions[0].EntryPrice, 1e-9)
}

func (suite *BinanceBrokerTestSuite) TestSubmitMarketOrderWithStop() {
	err := suite.broker.SubmitMarketOrderWithStop(context.Background(), MarketOrder{
		Symbol:          "BTC/USD",
		Side:            types.PositionSideLong,
		Quantity:        0.5,
		StopLossPrice:   19000,
		TakeProfitPrice: 22000,
	})
	suite.NoError(err)
	suite.Require().Len(suite.api.orders, 3)

	entry := suite.api.orders[0]
	suite.Equal("BTCUSDT", entry.symbol)
	suite.Equal(binance.SideTypeBuy, entry.side)
	suite.Equal(binance.OrderTypeMarket, entry.orderType)
	suite.Equal("0.50000000", entry.quantity)

	stop := suite.api.orders[1]
	suite.Equal(binance.SideTypeSell, stop.side)
	suite.Equal(binance.OrderTypeStopLossLimit, stop.orderType)
	suite.Equal("19000", stop.stopPrice)
	suite.Equal(binance.TimeInForceTypeGTC, stop.timeInForce)

	target := suite.api.orders[2]
	suite.Equal(binance.SideTypeSell, target.side)
	suite.Equal(binance.OrderTypeTakeProfitLimit, target.orderType)
	suite.Equal("22000", target.price)
}

func (suite *BinanceBrokerTestSuite) TestSubmitSkipsZeroProtectiveLevels() {
	err := suite.broker.SubmitMarketOrderWithStop(context.Background(), MarketOrder{
		Symbol:   "BTC/USD",
		Side:     types.PositionSideLong,
		Quantity: 0.5,
	})
	suite.NoError(err)
	suite.Len(suite.api.orders, 1)
}

func (suite *BinanceBrokerTestSuite) TestSubmitRejectsInvalidOrders() {
	err := suite.broker.SubmitMarketOrderWithStop(context.Background(), MarketOrder{
		Symbol:   "BTC/USD",
		Side:     types.PositionSideLong,
		Quantity: 0,
	})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))

	err = suite.broker.SubmitMarketOrderWithStop(context.Background(), MarketOrder{
		Symbol:   "BTCUSD",
		Side:     types.PositionSideLong,
		Quantity: 1,
	})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Empty(suite.api.orders)
}

func (suite *BinanceBrokerTestSuite) TestSubmitWrapsOrderFailure() {
	suite.api.orderErr = errors.New(errors.ErrCodeUnknown, "rejected")

	err := suite.broker.SubmitMarketOrderWithStop(context.Background(), MarketOrder{
		Symbol:   "BTC/USD",
		Side:     types.PositionSideLong,
		Quantity: 0.5,
	})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderFailed))
}

func (suite *BinanceBrokerTestSuite) TestClosePosition() {
	err := suite.broker.ClosePosition(context.Background(), types.Position{
		Symbol:   "BTC/USD",
		Side:     types.PositionSideLong,
		Quantity: 0.6,
	})
	suite.NoError(err)
	suite.Require().Len(suite.api.orders, 1)
	suite.Equal(binance.SideTypeSell, suite.api.orders[0].side)
	suite.Equal(binance.OrderTypeMarket, suite.api.orders[0].orderType)
	suite.Equal("0.60000000", suite.api.orders[0].quantity)
}

func (suite *BinanceBrokerTestSuite) TestExchangeSymbol() {
	symbol, err := exchangeSymbol("eth/usd")
	suite.NoError(err)
	suite.Equal("ETHUSDT", symbol)

	_, err = exchangeSymbol("ETH")
	suite.Error(err)
}
