package batchinsert

// DefaultChunkLimit 多值插入单条语句的最大行数
const DefaultChunkLimit = 1000

// Config 插入器配置
type Config struct {
	// Strategy 执行策略：native_batch / multi_value
	Strategy string `yaml:"strategy" json:"strategy"`
	// ChunkLimit 多值插入每块最大行数
	ChunkLimit int `yaml:"chunk_limit" json:"chunk_limit"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Strategy:   StrategyNativeBatch.String(),
		ChunkLimit: DefaultChunkLimit,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if _, err := ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.ChunkLimit <= 0 {
		return &ValidationError{Field: "chunk_limit", Message: "chunk_limit must be positive", Value: c.ChunkLimit}
	}
	return nil
}
