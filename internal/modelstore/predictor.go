package modelstore

import (
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// RatingPredictor 预训练的带偏置矩阵分解模型
//
//	est = mu + b_u + b_i + p_u · q_i
//
// 未知用户或未知电影时去掉对应项，结果截断到 [RatingMin, RatingMax]。
type RatingPredictor struct {
	GlobalMean  float64        `json:"global_mean"`
	RatingMin   float64        `json:"rating_min"`
	RatingMax   float64        `json:"rating_max"`
	UserIndex   map[string]int `json:"user_index"`
	ItemIndex   map[string]int `json:"item_index"`
	UserBias    []float64      `json:"user_bias"`
	ItemBias    []float64      `json:"item_bias"`
	UserFactors [][]float64    `json:"user_factors"`
	ItemFactors [][]float64    `json:"item_factors"`
}

// Predict 预测 user 对 movie 的评分
func (p *RatingPredictor) Predict(userID, movieID int) float64 {
	est := p.GlobalMean

	u, knownUser := p.UserIndex[strconv.Itoa(userID)]
	i, knownItem := p.ItemIndex[strconv.Itoa(movieID)]

	if knownUser {
		est += p.UserBias[u]
	}
	if knownItem {
		est += p.ItemBias[i]
	}
	if knownUser && knownItem {
		pu, qi := p.UserFactors[u], p.ItemFactors[i]
		for k := range min(len(pu), len(qi)) {
			est += pu[k] * qi[k]
		}
	}

	if est < p.RatingMin {
		est = p.RatingMin
	}
	if est > p.RatingMax {
		est = p.RatingMax
	}
	return est
}

// KnowsUser 模型训练集中是否包含该用户
func (p *RatingPredictor) KnowsUser(userID int) bool {
	_, ok := p.UserIndex[strconv.Itoa(userID)]
	return ok
}

func (p *RatingPredictor) validate() error {
	if p.RatingMax <= p.RatingMin {
		p.RatingMin, p.RatingMax = 1, 5
	}
	if len(p.UserBias) != len(p.UserFactors) {
		return fmt.Errorf("user bias/factor length mismatch: %d vs %d", len(p.UserBias), len(p.UserFactors))
	}
	if len(p.ItemBias) != len(p.ItemFactors) {
		return fmt.Errorf("item bias/factor length mismatch: %d vs %d", len(p.ItemBias), len(p.ItemFactors))
	}
	for key, idx := range p.UserIndex {
		if idx < 0 || idx >= len(p.UserBias) {
			return fmt.Errorf("user %s index %d out of range", key, idx)
		}
	}
	for key, idx := range p.ItemIndex {
		if idx < 0 || idx >= len(p.ItemBias) {
			return fmt.Errorf("item %s index %d out of range", key, idx)
		}
	}

	// 所有因子行的维度必须一致
	dims := -1
	switch {
	case len(p.ItemFactors) > 0:
		dims = len(p.ItemFactors[0])
	case len(p.UserFactors) > 0:
		dims = len(p.UserFactors[0])
	}
	for i, f := range p.ItemFactors {
		if len(f) != dims {
			return fmt.Errorf("item factor row %d has %d dims, want %d", i, len(f), dims)
		}
	}
	for u, f := range p.UserFactors {
		if len(f) != dims {
			return fmt.Errorf("user factor row %d has %d dims, want %d", u, len(f), dims)
		}
	}
	return nil
}

// DecodePredictor 读取 JSON 格式的评分模型
func DecodePredictor(r io.Reader) (*RatingPredictor, error) {
	var p RatingPredictor
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode rating model: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
