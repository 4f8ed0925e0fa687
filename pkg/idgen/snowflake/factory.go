package snowflake

import (
	"fmt"

	"productivity-hub/pkg/idgen/core"
)

// Factory 注册到 registry 的 snowflake 构造器，接受 *Config 或 Config
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (Factory) Create(config any) (core.IGenerator, error) {
	var cfg *Config
	switch c := config.(type) {
	case *Config:
		cfg = c
	case Config:
		cfg = &c
	default:
		return nil, fmt.Errorf("%w: snowflake expects *snowflake.Config, got %T", core.ErrInvalidGeneratorType, config)
	}

	// 避免把 (*Generator)(nil) 包装成非nil接口
	gen, err := NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return gen, nil
}
