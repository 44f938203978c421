package server

import "math"

// DefaultKFactor Elo 的 K 值
const DefaultKFactor = 32

// ExpectedScore 期望得分：1 / (1 + 10^((opp-subject)/400))
func ExpectedScore(subject, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-subject)/400))
}

// RatingDelta 计算一方在本局的分数变化（胜为正，负为负）
// 胜负双方各自独立计算，幅度不一定对称
func RatingDelta(subject, opponent int, won bool, k float64) int {
	actual := 0.0
	if won {
		actual = 1
	}
	return int(math.Round(k * (actual - ExpectedScore(subject, opponent))))
}

// applyDelta 分数不低于 0
func applyDelta(rating, delta int) int {
	r := rating + delta
	if r < 0 {
		return 0
	}
	return r
}
