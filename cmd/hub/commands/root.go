// Package commands hub 命令行：serve 启动服务，id 生成和解析ID，token 签发调试令牌。
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"productivity-hub/internal/config"
	"productivity-hub/internal/logger"
)

var configPath string

// Execute 构建根命令并执行
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hub",
		Short:        "Productivity hub backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or ./configs/config.yaml)")

	root.AddCommand(serveCmd(), idCmd(), tokenCmd())
	return root
}

// loadConfig 读取配置并创建日志器
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
