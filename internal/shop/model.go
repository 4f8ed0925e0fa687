// Package shop 拉取小店商品库存，并按工作时间窗口播报到钉钉。
package shop

import (
	"encoding/json"
	"strconv"
)

// 库存状态
const (
	StockOut    = 0
	StockLow    = 1
	StockPlenty = 2
)

// CommodityVO 商品库存
type CommodityVO struct {
	ID             *int64      `json:"id"`
	Name           string      `json:"name"`
	Price          json.Number `json:"price,omitempty"` // 保留上游的十进制文本
	Stock          *int64      `json:"stock"`
	OrderSold      *int64      `json:"orderSold"`
	StockState     *int        `json:"stockState"`
	StockStateText string      `json:"stockStateText"`
}

// upstreamResponse 上游接口结构 {code, msg, data}
type upstreamResponse struct {
	Code *int               `json:"code"`
	Msg  string             `json:"msg"`
	Data []*upstreamProduct `json:"data"`
}

type upstreamProduct struct {
	ID         *int64      `json:"id"`
	Name       string      `json:"name"`
	Price      json.Number `json:"price"`
	Stock      *int64      `json:"stock"`
	OrderSold  *int64      `json:"order_sold"`
	StockState *int        `json:"stock_state"`
}

// StockStateText 0缺货 1紧张 2充足，未知值原样输出，缺失为 "-"
func StockStateText(state *int) string {
	if state == nil {
		return "-"
	}
	switch *state {
	case StockOut:
		return "缺货"
	case StockLow:
		return "紧张"
	case StockPlenty:
		return "充足"
	default:
		return strconv.Itoa(*state)
	}
}

func (p *upstreamProduct) toVO() CommodityVO {
	return CommodityVO{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		Stock:          p.Stock,
		OrderSold:      p.OrderSold,
		StockState:     p.StockState,
		StockStateText: StockStateText(p.StockState),
	}
}
