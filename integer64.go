package batchinsert

import "math"

// 宿主环境没有原生 64 位整数时，会把 int64 的位模式原样塞进 float64 传过来。
// 这里按位还原，不做任何数值转换。

// DecodeInteger64 将按位编码的 float64 还原为 int64
func DecodeInteger64(encoded float64) int64 {
	return int64(math.Float64bits(encoded))
}

// EncodeInteger64 将 int64 按位编码为 float64（DecodeInteger64 的逆操作）
func EncodeInteger64(value int64) float64 {
	return math.Float64frombits(uint64(value))
}

// DecodeInteger64Slice 批量还原
func DecodeInteger64Slice(encoded []float64) []int64 {
	out := make([]int64, len(encoded))
	for i, v := range encoded {
		out[i] = DecodeInteger64(v)
	}
	return out
}

// ValidateInteger64Encoding 自检：sample 必须依次是 1, -1, 2^33, -2^33 的编码值
func ValidateInteger64Encoding(sample []float64) bool {
	if len(sample) < 4 {
		return false
	}
	want := [4]int64{1, -1, 1 << 33, -(1 << 33)}
	for i, w := range want {
		if DecodeInteger64(sample[i]) != w {
			return false
		}
	}
	return true
}
