package utils

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// NewID 生成实体ID（去掉连字符的uuid，用于账户/委托/成交/信号/持仓）
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Round4 金额统一按4位小数舍入
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round2 现金按2位小数舍入
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
