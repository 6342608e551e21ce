package utils

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type OrderUtilsTestSuite struct {
	suite.Suite
}

func TestOrderUtilsSuite(t *testing.T) {
	suite.Run(t, new(OrderUtilsTestSuite))
}

func (suite *OrderUtilsTestSuite) TestCalculateMaxQuantity() {
	suite.InDelta(4.0, CalculateMaxQuantity(100000, 25000), 1e-9)
	suite.Equal(0.0, CalculateMaxQuantity(0, 25000))
	suite.Equal(0.0, CalculateMaxQuantity(100000, 0))
	suite.Equal(0.0, CalculateMaxQuantity(-100, 25000))
}

func (suite *OrderUtilsTestSuite) TestRoundToDecimalPrecision() {
	suite.InDelta(1.2345, RoundToDecimalPrecision(1.23456789, 4), 1e-12)
	suite.InDelta(1.0, RoundToDecimalPrecision(1.999, 0), 1e-12)

	// Always rounds down, never up.
	suite.InDelta(0.0199, RoundToDecimalPrecision(0.01999, 4), 1e-12)
}
