package localstore

// Quota 单个命名空间的存储上限
const Quota int64 = 5 * 1024 * 1024

// 占用等级
const (
	LevelOK      = "ok"
	LevelWarning = "warning"
	LevelDanger  = "danger"
)

// Usage 存储占用情况
type Usage struct {
	Bytes   int64   `json:"bytes"`
	Quota   int64   `json:"quota"`
	Percent float64 `json:"percent"`
	Level   string  `json:"level"`
}

// MeasureSlots 统计槽位占用（键与值的 UTF-8 字节数之和），空值不计
func MeasureSlots(slots map[string]string) Usage {
	var n int64
	for k, v := range slots {
		if v == "" {
			continue
		}
		n += int64(len(k) + len(v))
	}
	return NewUsage(n)
}

// NewUsage 根据字节数计算占用等级
func NewUsage(bytes int64) Usage {
	percent := float64(bytes) / float64(Quota) * 100
	level := LevelOK
	switch {
	case percent >= 90:
		level = LevelDanger
	case percent >= 80:
		level = LevelWarning
	}
	return Usage{Bytes: bytes, Quota: Quota, Percent: percent, Level: level}
}
